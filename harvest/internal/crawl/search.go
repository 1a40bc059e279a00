// Package crawl navigates Google Maps: search for each target, pick the
// relevant result cards, open each place page and pull its reviews.
package crawl

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/hazyhaar/mapharvest/harvest/internal/browser"
	"github.com/hazyhaar/mapharvest/harvest/internal/extract"
)

const mapsBase = "https://www.google.com/maps/search/"

// SearchURL builds the Maps search URL for an organization in a
// location.
func SearchURL(organization, location string) string {
	return mapsBase + url.PathEscape(organization+" "+location)
}

// DismissOverlays clicks through consent and sign-in interstitials.
// Failures are logged and ignored: an overlay that will not dismiss
// degrades into missing results, which the caller already tolerates.
func DismissOverlays(ctx context.Context, s browser.Session, log *slog.Logger) {
	for round := 0; round < 2; round++ {
		clicked := false
		for _, sel := range extract.DismissSelectors {
			for _, el := range s.Query(ctx, sel) {
				if !el.Visible(ctx) {
					continue
				}
				if err := el.Click(ctx); err != nil {
					log.Debug("crawl: overlay dismiss failed", "selector", sel, "error", err)
					continue
				}
				clicked = true
				break
			}
			if clicked {
				break
			}
		}
		if !clicked {
			return
		}
		pause(ctx, 500*time.Millisecond)
	}
}

func pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
