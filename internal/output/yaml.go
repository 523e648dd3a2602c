// internal/output/yaml.go
package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

// NewYAMLSink writes a YAML sequence of mappings keyed by the header names.
func NewYAMLSink(path string) (Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("YAML file path is required")
	}
	return &bufferedSink{
		path:    path,
		format:  "yaml",
		records: []scraper.ProductRecord{},
		encode: func(f *pendingFile, records []scraper.ProductRecord) error {
			encoder := yaml.NewEncoder(f)
			encoder.SetIndent(2)
			if err := encoder.Encode(records); err != nil {
				return err
			}
			return encoder.Close()
		},
	}, nil
}
