// internal/output/buffered.go
package output

import (
	"fmt"

	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

// bufferedSink collects records in memory and encodes them in one pass on
// Close. Used by the document formats, which cannot be appended to.
type bufferedSink struct {
	path    string
	format  string
	records []scraper.ProductRecord
	encode  func(f *pendingFile, records []scraper.ProductRecord) error
	closed  bool
}

func (s *bufferedSink) WriteHeader(columns []string) error {
	if s.closed {
		return ErrSinkClosed
	}
	if len(columns) != len(Header) {
		return fmt.Errorf("%s output expects %d columns, got %d", s.format, len(Header), len(columns))
	}
	return nil
}

func (s *bufferedSink) Append(record scraper.ProductRecord) error {
	if s.closed {
		return ErrSinkClosed
	}
	s.records = append(s.records, record)
	return nil
}

func (s *bufferedSink) Close() error {
	if s.closed {
		return ErrSinkClosed
	}
	s.closed = true

	file, err := createPendingFile(s.path)
	if err != nil {
		return err
	}
	if err := s.encode(file, s.records); err != nil {
		file.Discard()
		return fmt.Errorf("failed to encode %s: %w", s.format, err)
	}
	return file.Commit()
}

func (s *bufferedSink) Abort() error {
	s.closed = true
	s.records = nil
	return nil
}

func (s *bufferedSink) Format() string { return s.format }

func (s *bufferedSink) Destination() string { return s.path }
