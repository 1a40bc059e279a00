// Package harvest runs resilient review-harvesting campaigns against
// Google Maps: it crawls each (organization, location) target with a
// pool of isolated browser sessions, normalizes what it finds, and
// writes the batch to a JSON or CSV file. Interruption mid-run still
// produces a partial output file.
package harvest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level harvest configuration.
type Config struct {
	Targets TargetsConfig `yaml:"targets"`
	Browser BrowserConfig `yaml:"browser"`
	Crawl   CrawlConfig   `yaml:"crawl"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// TargetsConfig names what to search for. The run covers the cartesian
// product of organizations and locations.
type TargetsConfig struct {
	Organizations []string `yaml:"organizations"`
	Locations     []string `yaml:"locations"`
	// Keywords widen the relevance filter beyond organization names.
	Keywords []string `yaml:"keywords"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote   string `yaml:"remote"` // attach instead of launching
	Headless *bool  `yaml:"headless"`
}

// CrawlConfig tunes the crawl itself.
type CrawlConfig struct {
	Workers           int           `yaml:"workers"`
	MaxCandidates     int           `yaml:"max_candidates"`
	MaxReviews        int           `yaml:"max_reviews"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	Settle            time.Duration `yaml:"settle"`
	// PacingMin/Max bound the randomized pause each worker takes
	// between targets.
	PacingMin time.Duration `yaml:"pacing_min"`
	PacingMax time.Duration `yaml:"pacing_max"`
	// Languages restricts detection; empty keeps the default set.
	Languages []string `yaml:"languages"`
}

// OutputConfig controls where results land.
type OutputConfig struct {
	Path string `yaml:"path"` // extension picks the format
	// GraceTimeout bounds how long an interrupted run may spend
	// flushing partial output.
	GraceTimeout time.Duration `yaml:"grace_timeout"`
}

// LoggingConfig controls the run log.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
	File  string `yaml:"file"`  // empty logs to stderr only
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("harvest: parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// DefaultLocations is the market coverage used when none are
// configured.
var DefaultLocations = []string{"Casablanca", "Rabat", "Marrakech", "Tangier", "Fes"}

// DefaultKeywords widen the relevance filter for the banking domain.
var DefaultKeywords = []string{"bank", "banque", "atm", "agence"}

// ApplyDefaults fills unset fields in place.
func (c *Config) ApplyDefaults() {
	if len(c.Targets.Locations) == 0 {
		c.Targets.Locations = append([]string(nil), DefaultLocations...)
	}
	if len(c.Targets.Keywords) == 0 {
		c.Targets.Keywords = append([]string(nil), DefaultKeywords...)
	}
	if c.Browser.Headless == nil {
		headless := true
		c.Browser.Headless = &headless
	}
	if c.Crawl.Workers <= 0 {
		c.Crawl.Workers = 4
	}
	if c.Crawl.MaxCandidates <= 0 {
		c.Crawl.MaxCandidates = 10
	}
	if c.Crawl.MaxReviews <= 0 {
		c.Crawl.MaxReviews = 20
	}
	if c.Crawl.NavigationTimeout <= 0 {
		c.Crawl.NavigationTimeout = 30 * time.Second
	}
	if c.Crawl.Settle <= 0 {
		c.Crawl.Settle = 2 * time.Second
	}
	if c.Crawl.PacingMin <= 0 {
		c.Crawl.PacingMin = 1 * time.Second
	}
	if c.Crawl.PacingMax <= c.Crawl.PacingMin {
		c.Crawl.PacingMax = c.Crawl.PacingMin + 2*time.Second
	}
	if c.Output.Path == "" {
		c.Output.Path = "reviews.json"
	}
	if c.Output.GraceTimeout <= 0 {
		c.Output.GraceTimeout = 15 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate rejects configurations a run cannot start from.
func (c *Config) Validate() error {
	if len(c.Targets.Organizations) == 0 {
		return fmt.Errorf("harvest: no organizations configured")
	}
	for _, org := range c.Targets.Organizations {
		if strings.TrimSpace(org) == "" {
			return fmt.Errorf("harvest: blank organization name")
		}
	}
	switch strings.ToLower(filepath.Ext(c.Output.Path)) {
	case ".json", ".csv":
	default:
		return fmt.Errorf("harvest: unsupported output extension %q", filepath.Ext(c.Output.Path))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("harvest: unknown log level %q", c.Logging.Level)
	}
	return nil
}
