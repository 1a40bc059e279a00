package crawl

import (
	"context"

	"github.com/hazyhaar/mapharvest/harvest/internal/browser"
)

// sessionRoot adapts a session's document root to the Node interface so
// extraction chains can run against the whole page.
type sessionRoot struct {
	s browser.Session
}

var _ browser.Node = sessionRoot{}

func (r sessionRoot) Text(context.Context) (string, error) { return "", nil }

func (r sessionRoot) Attribute(context.Context, string) (string, bool) { return "", false }

func (r sessionRoot) HTML(context.Context) (string, error) { return "", nil }

func (r sessionRoot) Visible(context.Context) bool { return true }

func (r sessionRoot) Click(context.Context) error { return browser.ErrNotInteractable }

func (r sessionRoot) Query(ctx context.Context, selector string) []browser.Node {
	return r.s.Query(ctx, selector)
}
