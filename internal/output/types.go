// internal/output/types.go
package output

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

// Header is the fixed column header of every export.
var Header = []string{"title", "img", "body", "char"}

// ErrSinkClosed is returned when a sink is used after Close or Abort.
var ErrSinkClosed = errors.New("sink already closed")

// Sink is an append-only destination for product rows. Rows become durable
// only when Close succeeds; Abort discards everything written so far.
// Sinks are not safe for concurrent use; the pipeline has a single writer.
type Sink interface {
	WriteHeader(columns []string) error
	Append(record scraper.ProductRecord) error
	Close() error
	Abort() error
	Format() string
	Destination() string
}

// ExportError wraps any failure while writing or committing an export. An
// export that failed leaves no usable output.
type ExportError struct {
	Format      string
	Destination string
	Err         error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s to %s: %v", e.Format, e.Destination, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Export writes the header and then every record, in order, to sink and
// commits it. On any failure the sink is aborted and an *ExportError is
// returned.
func Export(ctx context.Context, records []scraper.ProductRecord, sink Sink) error {
	fail := func(err error) error {
		if abortErr := sink.Abort(); abortErr != nil {
			err = errors.Join(err, fmt.Errorf("abort: %w", abortErr))
		}
		return &ExportError{Format: sink.Format(), Destination: sink.Destination(), Err: err}
	}

	if err := sink.WriteHeader(Header); err != nil {
		return fail(fmt.Errorf("write header: %w", err))
	}
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := sink.Append(record); err != nil {
			return fail(fmt.Errorf("write row %d: %w", i+1, err))
		}
	}
	if err := sink.Close(); err != nil {
		return &ExportError{Format: sink.Format(), Destination: sink.Destination(), Err: err}
	}
	return nil
}

// SQL identifier regex: starts with letter or underscore, contains letters, digits, underscores
var sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// ValidateSQLIdentifier rejects table names that would need quoting.
func ValidateSQLIdentifier(name string) error {
	if !sqlIdentifierRegex.MatchString(name) {
		return fmt.Errorf("invalid SQL identifier %q", name)
	}
	return nil
}
