package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/mapharvest/harvest/internal/browser"
)

// Strategy is one way of pulling a value out of a node. Fn never returns
// an error directly; failures are encoded in the Outcome so chains can
// keep cascading. Retries counts extra attempts granted on transient
// outcomes before the chain moves on.
type Strategy struct {
	Name    string
	Retries int
	Fn      func(ctx context.Context, n browser.Node) Outcome
}

// Chain is an ordered list of strategies for one field.
type Chain []Strategy

// Resolve tries each strategy in order and returns the first non-empty
// success. Transient outcomes are retried per strategy, then the chain
// moves on. An exhausted chain resolves to NotFound.
func (c Chain) Resolve(ctx context.Context, n browser.Node) Outcome {
	for _, s := range c {
		for attempt := 0; attempt <= s.Retries; attempt++ {
			if err := ctx.Err(); err != nil {
				return Transient(err)
			}
			out := s.Fn(ctx, n)
			switch out.Status {
			case StatusSuccess:
				if strings.TrimSpace(out.Value) != "" {
					return out
				}
			case StatusTransient:
				continue
			}
			break
		}
	}
	return NotFound()
}

// ResolveInt resolves the chain and interprets successes as integers in
// [lo, hi]. The first in-range value wins; out-of-range or unparseable
// successes fall through to the next strategy. Returns nil when nothing
// resolves.
func (c Chain) ResolveInt(ctx context.Context, n browser.Node, lo, hi int) *int {
	for _, s := range c {
		for attempt := 0; attempt <= s.Retries; attempt++ {
			if ctx.Err() != nil {
				return nil
			}
			out := s.Fn(ctx, n)
			if out.Status == StatusTransient {
				continue
			}
			if out.Status == StatusSuccess {
				if v, ok := leadingInt(out.Value); ok && v >= lo && v <= hi {
					return &v
				}
			}
			break
		}
	}
	return nil
}

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// leadingInt pulls the first number out of a phrase like "4.0 stars" or
// "Note : 5 sur 5" and truncates any fractional part.
func leadingInt(s string) (int, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	m = strings.ReplaceAll(m, ",", ".")
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// Text matches the first descendant with non-empty text content.
func Text(selector string) Strategy {
	return Strategy{
		Name: "text:" + selector,
		Fn: func(ctx context.Context, n browser.Node) Outcome {
			for _, el := range n.Query(ctx, selector) {
				t, err := el.Text(ctx)
				if err != nil {
					return Transient(err)
				}
				if strings.TrimSpace(t) != "" {
					return Success(strings.TrimSpace(t))
				}
			}
			return NotFound()
		},
	}
}

// SelfText reads the node's own text content.
func SelfText() Strategy {
	return Strategy{
		Name: "self-text",
		Fn: func(ctx context.Context, n browser.Node) Outcome {
			t, err := n.Text(ctx)
			if err != nil {
				return Transient(err)
			}
			if strings.TrimSpace(t) == "" {
				return NotFound()
			}
			return Success(strings.TrimSpace(t))
		},
	}
}

// Attr reads a named attribute off the first descendant that carries it.
func Attr(selector, name string) Strategy {
	return Strategy{
		Name: "attr:" + selector + "@" + name,
		Fn: func(ctx context.Context, n browser.Node) Outcome {
			for _, el := range n.Query(ctx, selector) {
				if v, ok := el.Attribute(ctx, name); ok && strings.TrimSpace(v) != "" {
					return Success(strings.TrimSpace(v))
				}
			}
			return NotFound()
		},
	}
}

// StarCount counts matching descendants, for rating markup that renders
// one element per filled star. Zero matches is NotFound, not a zero
// rating.
func StarCount(selector string) Strategy {
	return Strategy{
		Name: "stars:" + selector,
		Fn: func(ctx context.Context, n browser.Node) Outcome {
			els := n.Query(ctx, selector)
			if len(els) == 0 {
				return NotFound()
			}
			return Success(strconv.Itoa(len(els)))
		},
	}
}

// FromHTML re-parses the node's outer HTML with goquery and selects
// within it. Last-resort path for markup the live DOM query misses,
// and the shared shape with the offline fixture loader.
func FromHTML(selector string) Strategy {
	return Strategy{
		Name: "html:" + selector,
		Fn: func(ctx context.Context, n browser.Node) Outcome {
			raw, err := n.HTML(ctx)
			if err != nil {
				return Transient(err)
			}
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
			if err != nil {
				return Transient(err)
			}
			t := strings.TrimSpace(doc.Find(selector).First().Text())
			if t == "" {
				return NotFound()
			}
			return Success(t)
		},
	}
}
