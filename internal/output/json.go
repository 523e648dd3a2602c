// internal/output/json.go
package output

import (
	"encoding/json"
	"fmt"

	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

// NewJSONSink writes an array of objects keyed by the header names.
func NewJSONSink(path string) (Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("JSON file path is required")
	}
	return &bufferedSink{
		path:    path,
		format:  "json",
		records: []scraper.ProductRecord{},
		encode: func(f *pendingFile, records []scraper.ProductRecord) error {
			encoder := json.NewEncoder(f)
			encoder.SetIndent("", "  ")
			encoder.SetEscapeHTML(false)
			return encoder.Encode(records)
		},
	}, nil
}
