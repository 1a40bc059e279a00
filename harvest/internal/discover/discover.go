// Package discover drives lazily loaded panes to exhaustion. Google Maps
// renders search results and reviews into feeds that append items on
// scroll, so the only way to know the content is complete is to keep
// scrolling until the item count stops moving.
package discover

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/mapharvest/harvest/internal/browser"
)

// Config bounds a discovery loop.
type Config struct {
	// ContainerSelectors locate the scrollable pane, tried in order.
	// When none match the whole window is scrolled.
	ContainerSelectors []string
	// ItemSelectors count the items of interest, first matching
	// selector wins.
	ItemSelectors []string
	// TriggerSelectors match explicit "show more" affordances clicked
	// before the scroll loop starts.
	TriggerSelectors []string
	// Settle is the pause between scroll rounds, giving the feed time
	// to append.
	Settle time.Duration
	// MaxRounds caps scroll iterations regardless of growth.
	MaxRounds int
	// MaxTriggerClicks caps explicit trigger activations.
	MaxTriggerClicks int
	// Target stops the loop early once at least this many items are
	// visible. Zero means unbounded.
	Target int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Settle <= 0 {
		c.Settle = 1500 * time.Millisecond
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = 25
	}
	if c.MaxTriggerClicks <= 0 {
		c.MaxTriggerClicks = 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Discoverer scrolls one session's current page.
type Discoverer struct {
	cfg Config
}

func New(cfg Config) *Discoverer {
	cfg.defaults()
	return &Discoverer{cfg: cfg}
}

// Items returns the currently visible items, using the first item
// selector that matches anything.
func (d *Discoverer) Items(ctx context.Context, s browser.Session) []browser.Node {
	for _, sel := range d.cfg.ItemSelectors {
		if els := s.Query(ctx, sel); len(els) > 0 {
			return els
		}
	}
	return nil
}

func (d *Discoverer) container(ctx context.Context, s browser.Session) browser.Node {
	for _, sel := range d.cfg.ContainerSelectors {
		if els := s.Query(ctx, sel); len(els) > 0 {
			return els[0]
		}
	}
	return nil
}

// ExhaustTriggers clicks "show more" style affordances until none remain
// or the click budget runs out. Click failures end the loop quietly; the
// scroll phase still runs afterwards.
func (d *Discoverer) ExhaustTriggers(ctx context.Context, s browser.Session) int {
	clicks := 0
	for clicks < d.cfg.MaxTriggerClicks {
		if ctx.Err() != nil {
			return clicks
		}
		var trigger browser.Node
		for _, sel := range d.cfg.TriggerSelectors {
			for _, el := range s.Query(ctx, sel) {
				if el.Visible(ctx) {
					trigger = el
					break
				}
			}
			if trigger != nil {
				break
			}
		}
		if trigger == nil {
			return clicks
		}
		if err := trigger.Click(ctx); err != nil {
			d.cfg.Logger.Debug("discover: trigger click failed", "error", err)
			return clicks
		}
		clicks++
		sleep(ctx, d.cfg.Settle)
	}
	return clicks
}

// Exhaust scrolls until the item count holds steady across one settle
// interval, the round budget is spent, or the target is reached. It
// returns the final set of items and the number of rounds used. A feed
// that stops producing at k items costs one confirming round past k.
func (d *Discoverer) Exhaust(ctx context.Context, s browser.Session) ([]browser.Node, int) {
	d.ExhaustTriggers(ctx, s)

	scope := d.container(ctx, s)
	prev := len(d.Items(ctx, s))
	rounds := 0
	for rounds < d.cfg.MaxRounds {
		if ctx.Err() != nil {
			break
		}
		if d.cfg.Target > 0 && prev >= d.cfg.Target {
			break
		}
		if err := s.ScrollToBottom(ctx, scope); err != nil {
			d.cfg.Logger.Debug("discover: scroll failed", "error", err)
			break
		}
		rounds++
		sleep(ctx, d.cfg.Settle)

		cur := len(d.Items(ctx, s))
		if cur <= prev {
			prev = cur
			break
		}
		prev = cur
	}
	items := d.Items(ctx, s)
	d.cfg.Logger.Debug("discover: exhausted", "items", len(items), "rounds", rounds)
	return items, rounds
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
