package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/mapharvest/harvest/internal/browser"
	"github.com/hazyhaar/mapharvest/harvest/internal/discover"
	"github.com/hazyhaar/mapharvest/harvest/internal/extract"
	"github.com/hazyhaar/mapharvest/harvest/record"
)

// ReviewConfig tunes review extraction on a place page.
type ReviewConfig struct {
	NavigationTimeout time.Duration
	Settle            time.Duration
	// MaxReviews caps reviews per entity. Zero keeps everything the
	// feed yields.
	MaxReviews int
	Registry   extract.Registry
	Discover   discover.Config
	// Now anchors relative-date resolution; defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

func (c *ReviewConfig) defaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.Settle <= 0 {
		c.Settle = 2 * time.Second
	}
	if c.Registry == nil {
		c.Registry = extract.DefaultReviewRegistry()
	}
	if len(c.Discover.ItemSelectors) == 0 {
		c.Discover.ContainerSelectors = extract.FeedSelectors
		c.Discover.ItemSelectors = extract.ReviewSelectors
	}
	c.Discover.Target = c.MaxReviews
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	c.Discover.Logger = c.Logger
}

// ReviewExtractor pulls the review feed of one place page.
type ReviewExtractor struct {
	cfg ReviewConfig
	d   *discover.Discoverer
}

func NewReviewExtractor(cfg ReviewConfig) *ReviewExtractor {
	cfg.defaults()
	return &ReviewExtractor{cfg: cfg, d: discover.New(cfg.Discover)}
}

// Extract opens the entity's place page and returns its reviews.
// Reviews with neither text nor rating are dropped.
func (re *ReviewExtractor) Extract(ctx context.Context, s browser.Session, ent record.Entity) ([]record.ReviewRecord, error) {
	if ent.Ref == "" {
		return nil, fmt.Errorf("crawl: entity %q has no place URL", ent.Name)
	}
	if err := s.Navigate(ctx, ent.Ref, re.cfg.NavigationTimeout); err != nil {
		return nil, fmt.Errorf("crawl: open place %q: %w", ent.Name, err)
	}
	DismissOverlays(ctx, s, re.cfg.Logger)
	pause(ctx, re.cfg.Settle)

	re.activateReviews(ctx, s)
	cards, _ := re.d.Exhaust(ctx, s)
	re.expandTruncated(ctx, s)

	limit := len(cards)
	if re.cfg.MaxReviews > 0 && limit > re.cfg.MaxReviews {
		limit = re.cfg.MaxReviews
	}
	now := re.cfg.Now()

	var out []record.ReviewRecord
	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			break
		}
		rec := re.readCard(ctx, cards[i], ent, now)
		if rec.Empty() {
			continue
		}
		out = append(out, rec)
	}
	re.cfg.Logger.Info("crawl: reviews extracted",
		"entity", ent.Name, "cards", len(cards), "kept", len(out))
	return out, nil
}

// activateReviews switches the place panel to its reviews section. Some
// layouts show reviews inline, so failure to find the tab is not an
// error.
func (re *ReviewExtractor) activateReviews(ctx context.Context, s browser.Session) {
	for _, sel := range extract.ReviewTabSelectors {
		for _, el := range s.Query(ctx, sel) {
			if !el.Visible(ctx) {
				continue
			}
			if err := el.Click(ctx); err != nil {
				re.cfg.Logger.Debug("crawl: review tab click failed", "selector", sel, "error", err)
				continue
			}
			pause(ctx, re.cfg.Settle)
			return
		}
	}
}

// expandTruncated clicks every visible "more" affordance so full review
// text is in the DOM before extraction.
func (re *ReviewExtractor) expandTruncated(ctx context.Context, s browser.Session) {
	clicks := 0
	for _, sel := range extract.ExpandSelectors {
		for _, el := range s.Query(ctx, sel) {
			if ctx.Err() != nil || clicks >= 100 {
				return
			}
			if !el.Visible(ctx) {
				continue
			}
			if err := el.Click(ctx); err != nil {
				re.cfg.Logger.Debug("crawl: expand click failed", "error", err)
				continue
			}
			clicks++
		}
		if clicks > 0 {
			// one settle for all expansions in this selector family
			pause(ctx, re.cfg.Settle/2)
		}
	}
}

func (re *ReviewExtractor) readCard(ctx context.Context, card browser.Node, ent record.Entity, now time.Time) record.ReviewRecord {
	rec := record.ReviewRecord{
		EntityName:   ent.Name,
		Organization: ent.Organization,
		Location:     ent.Location,
		Address:      ent.Address,
		SourceRef:    ent.Ref,
	}
	if out := re.cfg.Registry.Resolve(ctx, extract.FieldReviewer, card); out.Status == extract.StatusSuccess {
		rec.Reviewer = out.Value
	}
	if out := re.cfg.Registry.Resolve(ctx, extract.FieldText, card); out.Status == extract.StatusSuccess {
		rec.Text = out.Value
	}
	rec.Rating = re.cfg.Registry[extract.FieldRating].ResolveInt(ctx, card, 1, 5)
	phrase := ""
	if out := re.cfg.Registry.Resolve(ctx, extract.FieldDate, card); out.Status == extract.StatusSuccess {
		phrase = out.Value
	}
	rec.Date = ResolveDate(phrase, now)
	return rec
}
