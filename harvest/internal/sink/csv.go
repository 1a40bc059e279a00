package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hazyhaar/mapharvest/harvest/record"
)

// CSVWriter writes records with a fixed header row. Absent ratings
// serialize as an empty cell.
type CSVWriter struct{}

func (CSVWriter) Write(path string, recs []record.ReviewRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sink: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(record.Fields); err != nil {
		return fmt.Errorf("sink: write header: %w", err)
	}
	for _, r := range recs {
		rating := ""
		if r.Rating != nil {
			rating = strconv.Itoa(*r.Rating)
		}
		row := []string{
			r.EntityName, r.Organization, r.Location, r.Address,
			r.Reviewer, r.Text, rating, r.Date, r.Language, r.SourceRef,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("sink: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("sink: flush %s: %w", path, err)
	}
	return nil
}
