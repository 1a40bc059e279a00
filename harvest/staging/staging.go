// Package staging loads harvest output into a local SQLite staging
// database, the same shape downstream pipelines ingest from. The table
// keeps both the mapped columns and the full record as JSON, so schema
// additions never lose data already staged.
package staging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/mapharvest/harvest/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS staging_reviews (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    bank_name   TEXT,
    agency_name TEXT,
    location    TEXT,
    address     TEXT,
    review_text TEXT,
    rating      INTEGER,
    review_date TEXT,
    language    TEXT,
    source_ref  TEXT,
    raw_data    TEXT,
    loaded_at   TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_staging_reviews_bank
    ON staging_reviews (bank_name, location);
`

// Store wraps the staging database.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (or creates) the staging database at path with the
// write-safe pragmas applied and the schema ensured.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("staging: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("staging: open: %w", err)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("staging: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("staging: ensure schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// OpenMemory opens an in-memory staging store for testing. MaxOpenConns
// is pinned to 1 so every query sees the same in-memory database.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("staging.OpenMemory: %v", err)
	}
	s.db.SetMaxOpenConns(1)
	t.Cleanup(func() { s.Close() })
	return s
}

func (s *Store) Close() error { return s.db.Close() }

const insertSQL = `
INSERT INTO staging_reviews
    (bank_name, agency_name, location, address, review_text,
     rating, review_date, language, source_ref, raw_data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// LoadRecords inserts a batch inside one transaction and returns the
// number of rows written.
func (s *Store) LoadRecords(ctx context.Context, recs []record.ReviewRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("staging: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("staging: prepare: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, r := range recs {
		raw, err := json.Marshal(r)
		if err != nil {
			return n, fmt.Errorf("staging: marshal record: %w", err)
		}
		var rating any
		if r.Rating != nil {
			rating = *r.Rating
		}
		if _, err := stmt.ExecContext(ctx,
			r.Organization, r.EntityName, r.Location, r.Address, r.Text,
			rating, r.Date, r.Language, r.SourceRef, string(raw)); err != nil {
			return n, fmt.Errorf("staging: insert: %w", err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("staging: commit: %w", err)
	}
	s.log.Info("staging: batch loaded", "rows", n)
	return n, nil
}

// Count returns the number of staged rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM staging_reviews").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("staging: count: %w", err)
	}
	return n, nil
}
