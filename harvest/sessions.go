package harvest

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/mapharvest/harvest/internal/browser"
)

// NewSessionFactory starts a shared Chrome instance and returns a
// factory handing out isolated pages from it, plus the shutdown
// function. Workers share the browser process but never a page.
func NewSessionFactory(ctx context.Context, cfg *Config, log *slog.Logger) (SessionFactory, func() error, error) {
	mgr := browser.NewManager(browser.Config{
		RemoteURL:         cfg.Browser.Remote,
		Headless:          cfg.Browser.Headless == nil || *cfg.Browser.Headless,
		NavigationTimeout: cfg.Crawl.NavigationTimeout,
		Logger:            log,
	})
	if err := mgr.Start(ctx); err != nil {
		return nil, nil, err
	}
	return mgr.NewSession, mgr.Close, nil
}
