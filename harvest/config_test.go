package harvest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.yaml")
	yaml := `
targets:
  organizations: ["Attijariwafa Bank", "Banque Populaire"]
  locations: ["Casablanca"]
crawl:
  workers: 2
  max_reviews: 50
  navigation_timeout: 45s
output:
  path: out/reviews.csv
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(cfg.Targets.Organizations) != 2 {
		t.Errorf("organizations = %v", cfg.Targets.Organizations)
	}
	if cfg.Crawl.Workers != 2 || cfg.Crawl.MaxReviews != 50 {
		t.Errorf("crawl = %+v", cfg.Crawl)
	}
	if cfg.Crawl.NavigationTimeout != 45*time.Second {
		t.Errorf("navigation_timeout = %v", cfg.Crawl.NavigationTimeout)
	}
	if cfg.Output.Path != "out/reviews.csv" {
		t.Errorf("output path = %q", cfg.Output.Path)
	}
	// defaults filled where the file is silent
	if cfg.Crawl.MaxCandidates != 10 {
		t.Errorf("max_candidates default = %d", cfg.Crawl.MaxCandidates)
	}
	if len(cfg.Targets.Keywords) == 0 {
		t.Error("keywords default missing")
	}
	if cfg.Browser.Headless == nil || !*cfg.Browser.Headless {
		t.Error("headless default should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyDefaultsLocations(t *testing.T) {
	cfg := &Config{Targets: TargetsConfig{Organizations: []string{"Bank"}}}
	cfg.ApplyDefaults()
	if len(cfg.Targets.Locations) != 5 {
		t.Fatalf("default locations = %v", cfg.Targets.Locations)
	}
	if cfg.Crawl.Workers != 4 || cfg.Crawl.MaxReviews != 20 {
		t.Errorf("crawl defaults = %+v", cfg.Crawl)
	}
	if cfg.Crawl.PacingMax <= cfg.Crawl.PacingMin {
		t.Errorf("pacing window inverted: %v..%v", cfg.Crawl.PacingMin, cfg.Crawl.PacingMax)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"no organizations", func(c *Config) { c.Targets.Organizations = nil }, true},
		{"blank organization", func(c *Config) { c.Targets.Organizations = []string{"  "} }, true},
		{"bad extension", func(c *Config) { c.Output.Path = "reviews.xml" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"csv output", func(c *Config) { c.Output.Path = "reviews.csv" }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Targets: TargetsConfig{Organizations: []string{"Bank"}}}
			cfg.ApplyDefaults()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("want error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
