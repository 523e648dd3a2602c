// internal/output/manager.go
package output

import (
	"context"
	"fmt"

	"github.com/valpere/CatalogScrapexter/internal/config"
	"github.com/valpere/CatalogScrapexter/internal/utils"
)

// Factory opens a sink for one export. The pipeline calls it only once it
// has records to write, so a run that fails earlier never touches the
// destination.
type Factory func(ctx context.Context) (Sink, error)

// Manager builds sinks for the configured output format
type Manager struct {
	config config.OutputConfig
	logger utils.Logger
}

// NewManager creates a new output manager
func NewManager(cfg config.OutputConfig, logger utils.Logger) (*Manager, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid output configuration: %w", err)
	}
	return &Manager{config: cfg, logger: logger}, nil
}

// Config returns the output configuration the manager was built with.
func (m *Manager) Config() config.OutputConfig {
	return m.config
}

// Factory returns a Factory bound to this manager.
func (m *Manager) Factory() Factory {
	return m.NewSink
}

// NewSink opens a sink for the configured format
func (m *Manager) NewSink(ctx context.Context) (Sink, error) {
	cfg := m.config
	switch cfg.Format {
	case config.FormatXLSX:
		return NewExcelSink(ExcelConfig{
			FilePath:  cfg.File,
			SheetName: cfg.SheetName,
			Logger:    m.logger.WithField("component", "excel-output"),
		})
	case config.FormatCSV:
		return NewCSVSink(cfg.File)
	case config.FormatJSON:
		return NewJSONSink(cfg.File)
	case config.FormatYAML:
		return NewYAMLSink(cfg.File)
	case config.FormatMarkdown:
		return NewMarkdownSink(cfg.File, "Products")
	case config.FormatSQLite, config.FormatPostgres, config.FormatMySQL:
		return NewSQLSink(ctx, SQLConfig{
			Dialect: cfg.Format,
			DSN:     cfg.DSN,
			File:    cfg.File,
			Table:   cfg.Table,
		})
	case config.FormatMongoDB:
		return NewMongoDBSink(ctx, MongoDBOptions{
			ConnectionString: cfg.DSN,
			Database:         cfg.Database,
			Collection:       cfg.Collection,
		})
	default:
		return nil, fmt.Errorf("unsupported output format: %s", cfg.Format)
	}
}
