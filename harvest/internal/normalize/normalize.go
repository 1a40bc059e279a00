// Package normalize cleans harvested review records: strips markup and
// residual entities out of free text, clamps ratings to the valid scale,
// tags each record with a language, and drops duplicates. Normalization
// is idempotent; running it twice yields the same records.
package normalize

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/mapharvest/harvest/record"
)

// Normalizer turns raw harvested records into clean, deduplicated ones.
// Implementations preserve input order for the records they keep.
type Normalizer interface {
	Normalize(ctx context.Context, recs []record.ReviewRecord) []record.ReviewRecord
}

// Classifier tags free text with a lowercase ISO 639-1 language code,
// or "unknown".
type Classifier interface {
	Classify(text string) string
}

const LanguageUnknown = "unknown"

var (
	scrubPolicy = bluemonday.StrictPolicy()
	spaces      = regexp.MustCompile(`\s+`)
)

// CleanText strips tags, unescapes residual HTML entities, and
// collapses runs of whitespace.
func CleanText(s string) string {
	s = scrubPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// clean normalizes one record in place. Ratings outside the scale are
// data errors and become absent rather than clamped to a bound.
func clean(rec *record.ReviewRecord, cls Classifier) {
	rec.EntityName = CleanText(rec.EntityName)
	rec.Address = CleanText(rec.Address)
	rec.Reviewer = CleanText(rec.Reviewer)
	rec.Text = CleanText(rec.Text)
	if rec.Rating != nil && (*rec.Rating < 1 || *rec.Rating > 5) {
		rec.Rating = nil
	}
	if rec.Language == "" || rec.Language == LanguageUnknown {
		if rec.Text == "" {
			rec.Language = LanguageUnknown
		} else {
			rec.Language = cls.Classify(rec.Text)
		}
	}
}

// dedup keeps the first occurrence of each record key, preserving order.
// Cleaning can scrub a record's text down to nothing (markup-only text,
// bare entities); records left with neither text nor rating are dropped
// here so they never reach the output.
func dedup(recs []record.ReviewRecord) []record.ReviewRecord {
	seen := make(map[string]struct{}, len(recs))
	out := recs[:0:0]
	for _, r := range recs {
		if r.Empty() {
			continue
		}
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
