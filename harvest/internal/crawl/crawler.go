package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/mapharvest/harvest/internal/browser"
	"github.com/hazyhaar/mapharvest/harvest/internal/discover"
	"github.com/hazyhaar/mapharvest/harvest/internal/extract"
	"github.com/hazyhaar/mapharvest/harvest/record"
)

// placeName reads the header of an already-open place page, for searches
// that skip the result list and land directly on a single place.
var placeName = extract.Chain{
	extract.Text("h1.DUwDvf"),
	extract.Text("h1.fontHeadlineLarge"),
	extract.Text("h1"),
}

// TargetConfig tunes candidate collection for one run.
type TargetConfig struct {
	NavigationTimeout time.Duration
	// Settle is the pause after navigations and clicks.
	Settle time.Duration
	// MaxCandidates caps how many result cards are opened per target.
	MaxCandidates int
	// Keywords widen the relevance filter beyond the organization name.
	Keywords []string
	Registry extract.Registry
	Discover discover.Config
	Logger   *slog.Logger
}

func (c *TargetConfig) defaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.Settle <= 0 {
		c.Settle = 2 * time.Second
	}
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = 10
	}
	if c.Registry == nil {
		c.Registry = extract.DefaultCandidateRegistry()
	}
	if len(c.Discover.ItemSelectors) == 0 {
		c.Discover.ContainerSelectors = extract.FeedSelectors
		c.Discover.ItemSelectors = extract.CandidateSelectors
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.Discover.Logger = c.Logger
}

// TargetCrawler turns one search target into the set of relevant place
// entities, each carrying its captured place URL.
type TargetCrawler struct {
	cfg TargetConfig
	d   *discover.Discoverer
}

func NewTargetCrawler(cfg TargetConfig) *TargetCrawler {
	cfg.defaults()
	return &TargetCrawler{cfg: cfg, d: discover.New(cfg.Discover)}
}

// Collect searches for the target and returns the relevant entities. A
// candidate that fails to open is skipped, never fatal; an unreachable
// search page is the one hard error.
func (tc *TargetCrawler) Collect(ctx context.Context, s browser.Session, target record.Target) ([]record.Entity, error) {
	searchURL := SearchURL(target.Organization, target.Location)
	if err := s.Navigate(ctx, searchURL, tc.cfg.NavigationTimeout); err != nil {
		return nil, fmt.Errorf("crawl: search %q %q: %w", target.Organization, target.Location, err)
	}
	DismissOverlays(ctx, s, tc.cfg.Logger)
	pause(ctx, tc.cfg.Settle)

	items, _ := tc.d.Exhaust(ctx, s)
	if len(items) == 0 {
		return tc.singlePlace(ctx, s, target)
	}
	count := len(items)
	if count > tc.cfg.MaxCandidates {
		count = tc.cfg.MaxCandidates
	}
	tc.cfg.Logger.Info("crawl: candidates discovered",
		"organization", target.Organization, "location", target.Location,
		"found", len(items), "opening", count)

	var entities []record.Entity
	for i := 0; i < count; i++ {
		ent, err := tc.openCandidate(ctx, s, target, i)
		if err != nil {
			tc.cfg.Logger.Warn("crawl: candidate skipped",
				"organization", target.Organization, "index", i, "error", err)
			continue
		}
		if ent != nil {
			entities = append(entities, *ent)
		}
	}
	return entities, nil
}

// openCandidate re-queries the result list by position, extracts the
// card fields, and clicks through to capture the place URL. Re-querying
// each time avoids stale references after the Back navigation.
func (tc *TargetCrawler) openCandidate(ctx context.Context, s browser.Session, target record.Target, idx int) (*record.Entity, error) {
	items := tc.d.Items(ctx, s)
	if idx >= len(items) {
		return nil, fmt.Errorf("crawl: result list shrank to %d items", len(items))
	}
	card := items[idx]

	ent := record.Entity{
		Organization: target.Organization,
		Location:     target.Location,
	}
	if out := tc.cfg.Registry.Resolve(ctx, extract.FieldName, card); out.Status == extract.StatusSuccess {
		ent.Name = out.Value
	}
	if out := tc.cfg.Registry.Resolve(ctx, extract.FieldAddress, card); out.Status == extract.StatusSuccess {
		ent.Address = out.Value
	}
	if out := tc.cfg.Registry.Resolve(ctx, extract.FieldRating, card); out.Status == extract.StatusSuccess {
		ent.Rating = parseFloat(out.Value)
	}
	if !ent.Relevant(tc.cfg.Keywords) {
		tc.cfg.Logger.Debug("crawl: candidate not relevant", "name", ent.Name)
		return nil, nil
	}

	if err := card.Click(ctx); err != nil {
		return nil, fmt.Errorf("open %q: %w", ent.Name, err)
	}
	pause(ctx, tc.cfg.Settle)
	ref, err := s.CurrentURL(ctx)
	if err == nil {
		ent.Ref = ref
	}
	if ent.Name == "" {
		if out := placeName.Resolve(ctx, sessionRoot{s}); out.Status == extract.StatusSuccess {
			ent.Name = out.Value
		}
	}
	if err := s.Back(ctx); err != nil {
		// History can be empty when the click replaced the entry;
		// reopen the search list instead.
		if nerr := s.Navigate(ctx, SearchURL(target.Organization, target.Location), tc.cfg.NavigationTimeout); nerr != nil {
			return &ent, fmt.Errorf("return to results: %w", nerr)
		}
	}
	pause(ctx, tc.cfg.Settle)
	return &ent, nil
}

// singlePlace handles searches that resolve straight to a place page.
func (tc *TargetCrawler) singlePlace(ctx context.Context, s browser.Session, target record.Target) ([]record.Entity, error) {
	cur, err := s.CurrentURL(ctx)
	if err != nil || !strings.Contains(cur, "/maps/place/") {
		tc.cfg.Logger.Info("crawl: no candidates",
			"organization", target.Organization, "location", target.Location)
		return nil, nil
	}
	ent := record.Entity{
		Organization: target.Organization,
		Location:     target.Location,
		Ref:          cur,
	}
	if out := placeName.Resolve(ctx, sessionRoot{s}); out.Status == extract.StatusSuccess {
		ent.Name = out.Value
	}
	if !ent.Relevant(tc.cfg.Keywords) {
		return nil, nil
	}
	return []record.Entity{ent}, nil
}

func parseFloat(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
