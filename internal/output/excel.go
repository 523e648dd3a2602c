// internal/output/excel.go
package output

import (
	"fmt"
	"unicode/utf8"

	"github.com/valpere/CatalogScrapexter/internal/scraper"
	"github.com/valpere/CatalogScrapexter/internal/utils"
	"github.com/xuri/excelize/v2"
)

// Excel-specific limits
const (
	// DefaultExcelMaxCellLength is the maximum characters in a single Excel cell
	DefaultExcelMaxCellLength = 32767
	// DefaultExcelMaxSheetRows is the maximum rows per sheet in Excel
	DefaultExcelMaxSheetRows = 1048576
	// DefaultExcelSheetName is used when ExcelConfig.SheetName is empty
	DefaultExcelSheetName = "Products"
)

// ExcelConfig configuration for Excel output
type ExcelConfig struct {
	FilePath      string
	SheetName     string
	MaxCellLength int
	ColumnWidth   float64
	Logger        utils.Logger
}

// ExcelSink streams rows into a single worksheet with excelize's
// StreamWriter and writes the workbook on Close.
type ExcelSink struct {
	file   *excelize.File
	stream *excelize.StreamWriter
	config ExcelConfig
	row    int
	closed bool
	logger utils.Logger
}

// NewExcelSink creates a new Excel sink. Nothing is written to FilePath
// until Close.
func NewExcelSink(config ExcelConfig) (*ExcelSink, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("Excel file path is required")
	}
	if config.SheetName == "" {
		config.SheetName = DefaultExcelSheetName
	}
	if config.MaxCellLength <= 0 {
		config.MaxCellLength = DefaultExcelMaxCellLength
	}
	if config.ColumnWidth <= 0 {
		config.ColumnWidth = 40
	}
	if config.Logger == nil {
		config.Logger = utils.NewNopLogger()
	}

	file := excelize.NewFile()
	defaultSheet := file.GetSheetName(0)
	if defaultSheet != config.SheetName {
		if err := file.SetSheetName(defaultSheet, config.SheetName); err != nil {
			file.Close()
			return nil, fmt.Errorf("invalid sheet name %q: %w", config.SheetName, err)
		}
	}

	stream, err := file.NewStreamWriter(config.SheetName)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}

	return &ExcelSink{
		file:   file,
		stream: stream,
		config: config,
		row:    1,
		logger: config.Logger,
	}, nil
}

// WriteHeader writes a bold header row and sets column widths.
func (s *ExcelSink) WriteHeader(columns []string) error {
	if s.closed {
		return ErrSinkClosed
	}
	if err := s.stream.SetColWidth(1, len(columns), s.config.ColumnWidth); err != nil {
		return err
	}

	styleID, err := s.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(columns))
	for i, c := range columns {
		cells[i] = excelize.Cell{StyleID: styleID, Value: c}
	}
	return s.writeRow(cells)
}

// Append writes one record as the next row. Values longer than the cell
// limit are truncated.
func (s *ExcelSink) Append(record scraper.ProductRecord) error {
	if s.closed {
		return ErrSinkClosed
	}
	columns := record.Columns()
	cells := make([]interface{}, len(columns))
	for i, v := range columns {
		cells[i] = s.truncate(v, i)
	}
	return s.writeRow(cells)
}

func (s *ExcelSink) writeRow(cells []interface{}) error {
	if s.row > DefaultExcelMaxSheetRows {
		return fmt.Errorf("sheet %q is full (%d rows)", s.config.SheetName, DefaultExcelMaxSheetRows)
	}
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	if err := s.stream.SetRow(cell, cells); err != nil {
		return err
	}
	s.row++
	return nil
}

func (s *ExcelSink) truncate(v string, col int) string {
	n := utf8.RuneCountInString(v)
	if n <= s.config.MaxCellLength {
		return v
	}
	s.logger.WithFields(map[string]interface{}{
		"row":    s.row,
		"column": Header[col],
	}).Warnf("Excel: truncating cell data from %d to %d characters", n, s.config.MaxCellLength)

	runes := []rune(v)
	return string(runes[:s.config.MaxCellLength])
}

// Close flushes the stream and writes the workbook to FilePath.
func (s *ExcelSink) Close() error {
	if s.closed {
		return ErrSinkClosed
	}
	s.closed = true
	defer s.file.Close()

	if err := s.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush worksheet: %w", err)
	}

	pending, err := createPendingFile(s.config.FilePath)
	if err != nil {
		return err
	}
	if err := s.file.Write(pending); err != nil {
		pending.Discard()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return pending.Commit()
}

// Abort releases the workbook without writing anything.
func (s *ExcelSink) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

// Format returns the output type
func (s *ExcelSink) Format() string { return "xlsx" }

// Destination returns the target file path.
func (s *ExcelSink) Destination() string { return s.config.FilePath }
