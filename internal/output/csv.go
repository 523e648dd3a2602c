// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"

	"github.com/valpere/CatalogScrapexter/internal/scraper"
)

// CSVSink writes rows in CSV format
type CSVSink struct {
	path   string
	file   *pendingFile
	writer *csv.Writer
	closed bool
}

// NewCSVSink creates a new CSV sink
func NewCSVSink(path string) (*CSVSink, error) {
	if path == "" {
		return nil, fmt.Errorf("CSV file path is required")
	}
	file, err := createPendingFile(path)
	if err != nil {
		return nil, err
	}

	return &CSVSink{
		path:   path,
		file:   file,
		writer: csv.NewWriter(file),
	}, nil
}

// WriteHeader writes the header row
func (s *CSVSink) WriteHeader(columns []string) error {
	if s.closed {
		return ErrSinkClosed
	}
	if err := s.writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// Append writes a single record
func (s *CSVSink) Append(record scraper.ProductRecord) error {
	if s.closed {
		return ErrSinkClosed
	}
	if err := s.writer.Write(record.Columns()); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// Close flushes buffered rows and moves the file into place
func (s *CSVSink) Close() error {
	if s.closed {
		return ErrSinkClosed
	}
	s.closed = true

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Discard()
		return err
	}
	return s.file.Commit()
}

// Abort discards the partially written file
func (s *CSVSink) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Discard()
}

// Format returns the output type
func (s *CSVSink) Format() string { return "csv" }

// Destination returns the target file path
func (s *CSVSink) Destination() string { return s.path }
