// Package browser manages the Chrome headless lifecycle and exposes the
// render-session capabilities the harvest pipeline is written against.
// The pipeline never touches Rod directly: it sees Session and Node, so a
// run can be driven by a fake implementation in tests.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNoBrowser is returned when a session is requested before the manager
// launched Chrome, or after it was closed.
var ErrNoBrowser = errors.New("browser: no active browser")

// ErrNotInteractable is returned by Click when both the direct click and
// the scripted fallback failed.
var ErrNotInteractable = errors.New("browser: element not interactable")

// Node is one DOM node returned by a query. Absence is communicated by
// empty query results, never by errors.
type Node interface {
	// Text returns the node's trimmed visible text.
	Text(ctx context.Context) (string, error)
	// Attribute returns an attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool)
	// HTML returns the node's outer HTML for offline parsing fallbacks.
	HTML(ctx context.Context) (string, error)
	// Visible reports whether the node is rendered and displayed.
	Visible(ctx context.Context) bool
	// Click clicks the node, falling back to a scripted click when the
	// direct click is intercepted or the node reference has gone stale.
	Click(ctx context.Context) error
	// Query returns descendant nodes matching the selector, in document
	// order. Empty on absence.
	Query(ctx context.Context, selector string) []Node
}

// Session owns one browser page. No two logical tasks may use a session
// concurrently; ownership is slot-exclusive for a work unit's duration.
type Session interface {
	// Navigate loads the URL and waits for the load event, bounded by the
	// timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// Back returns to the previous entry in the session history.
	Back(ctx context.Context) error
	// CurrentURL returns the page's current location.
	CurrentURL(ctx context.Context) (string, error)
	// Query returns document-scope nodes matching the selector. Empty on
	// absence, never an error.
	Query(ctx context.Context, selector string) []Node
	// ScrollToBottom scrolls the given container (or the window when scope
	// is nil) to its bottom.
	ScrollToBottom(ctx context.Context, scope Node) error
	// Close releases the page. Safe to call more than once.
	Close() error
}
