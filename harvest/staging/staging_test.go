package staging

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/mapharvest/harvest/internal/sink"
	"github.com/hazyhaar/mapharvest/harvest/record"
)

func intp(v int) *int { return &v }

func sample() []record.ReviewRecord {
	return []record.ReviewRecord{
		{
			EntityName: "Bank Maarif", Organization: "Attijariwafa Bank",
			Location: "Casablanca", Address: "12 Rue X",
			Reviewer: "Amina K.", Text: "Très bon service",
			Rating: intp(5), Date: "2025-06-01", Language: "fr",
			SourceRef: "https://maps/place/maarif",
		},
		{
			EntityName: "Bank Gauthier", Organization: "Attijariwafa Bank",
			Location: "Casablanca", Reviewer: "Youssef B.",
			Date: "2025-05-16", Language: "unknown",
			SourceRef: "https://maps/place/gauthier",
		},
	}
}

func TestLoadRecords(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()

	n, err := s.LoadRecords(ctx, sample())
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if n != 2 {
		t.Fatalf("loaded %d rows, want 2", n)
	}
	if count, _ := s.Count(ctx); count != 2 {
		t.Fatalf("Count = %d, want 2", count)
	}

	var bank, agency, raw string
	var rating *int
	err = s.db.QueryRow(`SELECT bank_name, agency_name, rating, raw_data
		FROM staging_reviews ORDER BY id LIMIT 1`).Scan(&bank, &agency, &rating, &raw)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if bank != "Attijariwafa Bank" || agency != "Bank Maarif" {
		t.Errorf("mapped columns = %q, %q", bank, agency)
	}
	if rating == nil || *rating != 5 {
		t.Errorf("rating = %v, want 5", rating)
	}
	var back record.ReviewRecord
	if err := json.Unmarshal([]byte(raw), &back); err != nil {
		t.Fatalf("raw_data not valid JSON: %v", err)
	}
	if back.Reviewer != "Amina K." {
		t.Errorf("raw_data round trip = %+v", back)
	}

	// absent rating stages as NULL
	var second *int
	if err := s.db.QueryRow(`SELECT rating FROM staging_reviews ORDER BY id DESC LIMIT 1`).Scan(&second); err != nil {
		t.Fatalf("query: %v", err)
	}
	if second != nil {
		t.Errorf("absent rating staged as %v, want NULL", *second)
	}
}

func TestLoadFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.json")
	if err := (sink.JSONWriter{}).Write(path, sample()); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	s := OpenMemory(t)
	n, err := s.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if n != 2 {
		t.Fatalf("loaded %d rows, want 2", n)
	}
}

func TestLoadFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.csv")
	if err := (sink.CSVWriter{}).Write(path, sample()); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("read %d records, want 2", len(recs))
	}
	if recs[0].Rating == nil || *recs[0].Rating != 5 {
		t.Errorf("csv rating = %v, want 5", recs[0].Rating)
	}
	if recs[1].Rating != nil {
		t.Errorf("empty csv rating parsed as %v", *recs[1].Rating)
	}

	s := OpenMemory(t)
	if n, err := s.LoadFile(context.Background(), path); err != nil || n != 2 {
		t.Fatalf("LoadFile = %d, %v", n, err)
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	s := OpenMemory(t)
	if _, err := s.LoadFile(context.Background(), "reviews.xml"); err == nil {
		t.Fatal("want error for unsupported extension")
	}
}
