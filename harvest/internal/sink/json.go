package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hazyhaar/mapharvest/harvest/record"
)

// JSONWriter writes records as a pretty-printed JSON array. HTML
// escaping is off so non-Latin review text survives byte-for-byte.
type JSONWriter struct{}

func (JSONWriter) Write(path string, recs []record.ReviewRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("sink: create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("sink: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if recs == nil {
		recs = []record.ReviewRecord{}
	}
	if err := enc.Encode(recs); err != nil {
		return fmt.Errorf("sink: encode %s: %w", path, err)
	}
	return nil
}
