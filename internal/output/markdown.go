// internal/output/markdown.go
package output

import (
	"fmt"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

var markdownCellReplacer = strings.NewReplacer(
	"|", `\|`,
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// NewMarkdownSink writes a single Markdown table with the export header.
func NewMarkdownSink(path string, title string) (Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("Markdown file path is required")
	}
	return &bufferedSink{
		path:    path,
		format:  "markdown",
		records: []scraper.ProductRecord{},
		encode: func(f *pendingFile, records []scraper.ProductRecord) error {
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				cols := r.Columns()
				for i := range cols {
					cols[i] = markdownCellReplacer.Replace(cols[i])
				}
				rows = append(rows, cols)
			}

			md := markdown.NewMarkdown(f)
			if title != "" {
				md.H1(title)
				md.PlainText("")
			}
			md.Table(markdown.TableSet{
				Header: Header,
				Rows:   rows,
			})
			return md.Build()
		},
	}, nil
}
