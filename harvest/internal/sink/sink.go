// Package sink persists harvested records. The output format follows
// the file extension; interrupted runs land in a timestamped partial
// file next to the configured path.
package sink

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/mapharvest/harvest/record"
)

// Writer serializes a batch of records to a file path, creating parent
// directories as needed.
type Writer interface {
	Write(path string, recs []record.ReviewRecord) error
}

// ForPath picks a writer from the path's extension. Supported: .json,
// .csv.
func ForPath(path string) (Writer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSONWriter{}, nil
	case ".csv":
		return CSVWriter{}, nil
	default:
		return nil, fmt.Errorf("sink: unsupported output extension %q", filepath.Ext(path))
	}
}

// PartialPath derives the partial-output path for an interrupted run:
// the configured stem plus a timestamp, keeping the extension so the
// partial file stays loadable by the same tools.
func PartialPath(path string, at time.Time) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_partial_%s%s", stem, at.Format("20060102_150405"), ext)
}
