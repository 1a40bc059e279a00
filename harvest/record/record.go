// Package record defines the structured types produced by a harvest run.
// These are the public API contract: any consumer (the staging loader, the
// trigger surface, downstream pipelines) imports this package to receive
// and process harvested reviews.
package record

import "strings"

// Target is one (organization, location) pair to crawl. Immutable input
// unit, created at run start from the cartesian product of the two input
// lists and consumed once by the crawler.
type Target struct {
	Organization string `json:"organization"`
	Location     string `json:"location"`
}

// Entity is a sub-location discovered for a Target, a branch or agency
// belonging to the organization. Its Ref is an opaque canonical locator
// (the resolved detail-page URL) used to reach its reviews.
type Entity struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Organization string   `json:"organization"`
	Location     string   `json:"location"`
	Ref          string   `json:"ref"`
	Rating       *float64 `json:"rating,omitempty"`
}

// Relevant reports whether the entity name matches the organization or one
// of the domain keywords, case-insensitive. Entities failing this test are
// discarded by the crawler.
func (e Entity) Relevant(keywords []string) bool {
	name := strings.ToLower(e.Name)
	if name == "" {
		return false
	}
	if strings.Contains(name, strings.ToLower(e.Organization)) {
		return true
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// ReviewRecord is one harvested customer review. A record with both empty
// Text and nil Rating is never materialized; it is dropped at the point
// of extraction.
type ReviewRecord struct {
	EntityName   string `json:"entity_name"`
	Organization string `json:"organization"`
	Location     string `json:"location"`
	Address      string `json:"address"`
	Reviewer     string `json:"reviewer"`
	Text         string `json:"text"`
	Rating       *int   `json:"rating"`
	Date         string `json:"date"`     // ISO-8601 date
	Language     string `json:"language"` // ISO 639-1 code or "unknown"
	SourceRef    string `json:"source_ref"`
}

// Empty reports whether the record carries neither text nor a rating.
func (r ReviewRecord) Empty() bool {
	return strings.TrimSpace(r.Text) == "" && r.Rating == nil
}

// Key is the deduplication identity of a record: same entity, reviewer,
// text, date, and source are considered one review.
func (r ReviewRecord) Key() string {
	return strings.ToLower(strings.Join([]string{
		r.EntityName, r.Reviewer, r.Text, r.Date, r.SourceRef,
	}, "|"))
}

// Fields is the canonical column order shared by the CSV writer and the
// staging loader.
var Fields = []string{
	"entity_name", "organization", "location", "address",
	"reviewer", "text", "rating", "date", "language", "source_ref",
}
