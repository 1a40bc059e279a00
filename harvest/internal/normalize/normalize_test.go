package normalize

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/hazyhaar/mapharvest/harvest/record"
)

// wordClassifier tags by trivial keyword lookup so tests stay
// deterministic without the statistical model.
type wordClassifier struct{}

func (wordClassifier) Classify(text string) string {
	lower := strings.ToLower(text)
	for _, w := range []string{"service", "attente", "agence"} {
		if strings.Contains(lower, w) {
			return "fr"
		}
	}
	return "en"
}

func intp(v int) *int { return &v }

func sample() []record.ReviewRecord {
	return []record.ReviewRecord{
		{
			EntityName: "Bank Maarif",
			Reviewer:   "Amina K.",
			Text:       "<b>Tr&egrave;s bon service</b>\n\n rapide",
			Rating:     intp(5),
			Date:       "2025-06-01",
			SourceRef:  "ref1",
		},
		{
			EntityName: "Bank Maarif",
			Reviewer:   "Youssef B.",
			Text:       "Good location",
			Rating:     intp(9), // out of scale
			Date:       "2025-05-16",
			SourceRef:  "ref1",
		},
		{ // duplicate of the first after cleaning
			EntityName: "Bank Maarif",
			Reviewer:   "Amina K.",
			Text:       "Très bon service rapide",
			Rating:     intp(5),
			Date:       "2025-06-01",
			SourceRef:  "ref1",
		},
	}
}

func TestSerialNormalize(t *testing.T) {
	s := &Serial{Classifier: wordClassifier{}}
	out := s.Normalize(context.Background(), sample())
	if len(out) != 2 {
		t.Fatalf("got %d records, want 2 after dedup", len(out))
	}
	if out[0].Text != "Très bon service rapide" {
		t.Errorf("text = %q, markup not scrubbed", out[0].Text)
	}
	if out[0].Language != "fr" {
		t.Errorf("language = %q, want fr", out[0].Language)
	}
	if out[1].Rating != nil {
		t.Errorf("out-of-scale rating kept: %v", *out[1].Rating)
	}
	if out[1].Language != "en" {
		t.Errorf("language = %q, want en", out[1].Language)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	s := &Serial{Classifier: wordClassifier{}}
	once := s.Normalize(context.Background(), sample())
	twice := s.Normalize(context.Background(), once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("normalize not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	in := sample()
	// widen the input so the pool actually interleaves
	for i := 0; i < 50; i++ {
		r := in[i%len(in)]
		r.Reviewer = r.Reviewer + string(rune('a'+i%26))
		in = append(in, r)
	}
	ctx := context.Background()
	serial := (&Serial{Classifier: wordClassifier{}}).Normalize(ctx, in)
	parallel := (&Parallel{Classifier: wordClassifier{}, Workers: 8}).Normalize(ctx, in)
	if !reflect.DeepEqual(serial, parallel) {
		t.Fatalf("parallel output diverges from serial\nserial:   %d recs\nparallel: %d recs", len(serial), len(parallel))
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := sample()
	raw := in[0].Text
	(&Serial{Classifier: wordClassifier{}}).Normalize(context.Background(), in)
	if in[0].Text != raw {
		t.Fatal("input slice mutated")
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"<script>x</script>plain", "plain"},
		{"a&amp;b", "a&b"},
		{"  spaced \t out \n text ", "spaced out text"},
		{"non-ASCII café محفوظ", "non-ASCII café محفوظ"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := CleanText(tc.in); got != tc.want {
			t.Errorf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeDropsRecordsScrubbedEmpty(t *testing.T) {
	// Text that survives extraction but scrubs to nothing must not
	// yield a record with empty text and no rating.
	in := []record.ReviewRecord{
		{EntityName: "Bank Maarif", Reviewer: "A", Text: "<br>"},
		{EntityName: "Bank Maarif", Reviewer: "B", Text: "&nbsp;"},
		{EntityName: "Bank Maarif", Reviewer: "C", Text: "<b></b>", Rating: intp(4)},
		{EntityName: "Bank Maarif", Reviewer: "D", Text: "fine"},
	}
	out := (&Serial{Classifier: wordClassifier{}}).Normalize(context.Background(), in)
	if len(out) != 2 {
		t.Fatalf("got %d records, want 2", len(out))
	}
	for _, r := range out {
		if r.Empty() {
			t.Fatalf("record with empty text and nil rating survived: %+v", r)
		}
	}
	if out[0].Reviewer != "C" || out[1].Reviewer != "D" {
		t.Errorf("kept reviewers %q, %q; want C, D", out[0].Reviewer, out[1].Reviewer)
	}
}

func TestEmptyTextIsUnknownLanguage(t *testing.T) {
	out := (&Serial{Classifier: wordClassifier{}}).Normalize(context.Background(),
		[]record.ReviewRecord{{Reviewer: "R", Rating: intp(3)}})
	if len(out) != 1 || out[0].Language != LanguageUnknown {
		t.Fatalf("out = %+v, want single record with unknown language", out)
	}
}
