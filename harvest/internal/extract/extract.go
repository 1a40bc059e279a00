// Package extract implements cascading field extraction. Every logical
// field maps to an ordered chain of strategies; the first strategy that
// yields a non-empty value wins. A field whose chain is exhausted resolves
// to its empty sentinel: selector drift degrades completeness, it never
// halts a run.
package extract

import (
	"context"
	"fmt"

	"github.com/hazyhaar/mapharvest/harvest/internal/browser"
)

// Status tags the outcome of trying one strategy on one node.
type Status int

const (
	// StatusSuccess carries an extracted value.
	StatusSuccess Status = iota
	// StatusNotFound means the strategy's shape is absent from this node.
	StatusNotFound
	// StatusTransient means the attempt failed for a recoverable reason
	// (stale reference, timeout) and may be retried.
	StatusTransient
)

// Outcome is the tagged result of one strategy attempt.
type Outcome struct {
	Status Status
	Value  string
	Cause  error
}

// Success wraps an extracted value.
func Success(value string) Outcome { return Outcome{Status: StatusSuccess, Value: value} }

// NotFound marks the strategy's DOM shape as absent.
func NotFound() Outcome { return Outcome{Status: StatusNotFound} }

// Transient marks a recoverable failure.
func Transient(cause error) Outcome { return Outcome{Status: StatusTransient, Cause: cause} }

func (o Outcome) String() string {
	switch o.Status {
	case StatusSuccess:
		return fmt.Sprintf("success(%q)", o.Value)
	case StatusNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("transient(%v)", o.Cause)
	}
}

// Field names a logical extraction target.
type Field string

const (
	FieldName     Field = "name"
	FieldAddress  Field = "address"
	FieldReviewer Field = "reviewer"
	FieldText     Field = "text"
	FieldRating   Field = "rating"
	FieldDate     Field = "date"
)

// Registry maps each field to its strategy chain.
type Registry map[Field]Chain

// Resolve runs the field's chain against the node. Unknown fields resolve
// to the empty sentinel.
func (r Registry) Resolve(ctx context.Context, field Field, n browser.Node) Outcome {
	chain, ok := r[field]
	if !ok {
		return NotFound()
	}
	return chain.Resolve(ctx, n)
}
