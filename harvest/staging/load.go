package staging

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hazyhaar/mapharvest/harvest/record"
)

// LoadFile reads a harvest output file (.json or .csv, as written by
// the sink) and stages its records. Returns the number of rows loaded.
func (s *Store) LoadFile(ctx context.Context, path string) (int, error) {
	recs, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	return s.LoadRecords(ctx, recs)
}

// ReadFile parses a harvest output file back into records.
func ReadFile(path string) ([]record.ReviewRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return readJSON(path)
	case ".csv":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("staging: unsupported input extension %q", filepath.Ext(path))
	}
}

func readJSON(path string) ([]record.ReviewRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("staging: read %s: %w", path, err)
	}
	var recs []record.ReviewRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("staging: parse %s: %w", path, err)
	}
	return recs, nil
}

func readCSV(path string) ([]record.ReviewRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("staging: open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("staging: parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	col := map[string]int{}
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range record.Fields {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("staging: %s missing column %q", path, required)
		}
	}

	var recs []record.ReviewRecord
	for _, row := range rows[1:] {
		rec := record.ReviewRecord{
			EntityName:   row[col["entity_name"]],
			Organization: row[col["organization"]],
			Location:     row[col["location"]],
			Address:      row[col["address"]],
			Reviewer:     row[col["reviewer"]],
			Text:         row[col["text"]],
			Date:         row[col["date"]],
			Language:     row[col["language"]],
			SourceRef:    row[col["source_ref"]],
		}
		if cell := strings.TrimSpace(row[col["rating"]]); cell != "" {
			v, err := strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("staging: %s bad rating %q: %w", path, cell, err)
			}
			rec.Rating = &v
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
