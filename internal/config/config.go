// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied to Settings.
const (
	DefaultConcurrency    = 4
	MaxConcurrency        = 64
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxBodyBytes   = 10 << 20
	DefaultSheetName      = "Products"
	DefaultTable          = "products"
	DefaultMetricsAddress = ":9090"
	DefaultServerAddress  = ":8080"
	DefaultMaxJobs        = 100
)

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	var s Settings
	applyDefaults(&s)
	return s
}

// LoadFromFile loads settings from a YAML file
func LoadFromFile(filename string) (*Settings, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads settings from YAML bytes
func LoadFromBytes(data []byte) (*Settings, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expandedData := expandEnvironmentVariables(string(data))

	var settings Settings
	if err := yaml.Unmarshal([]byte(expandedData), &settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&settings)

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &settings, nil
}

// LoadFromReader loads settings from an io.Reader
func LoadFromReader(reader io.Reader) (*Settings, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

// SaveToFile saves settings to a YAML file
func SaveToFile(settings *Settings, filename string) error {
	if settings == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// Validate checks settings after defaults have been applied.
func (s *Settings) Validate() error {
	if s.Concurrency < 1 || s.Concurrency > MaxConcurrency {
		return ValidationError{Path: "concurrency", Message: fmt.Sprintf("must be between 1 and %d, got %d", MaxConcurrency, s.Concurrency)}
	}
	if s.RequestTimeout < 0 {
		return ValidationError{Path: "request_timeout", Message: "must be non-negative"}
	}
	if s.RateLimit < 0 {
		return ValidationError{Path: "rate_limit", Message: "must be non-negative"}
	}
	if s.MaxBodyBytes < 0 {
		return ValidationError{Path: "max_body_bytes", Message: "must be non-negative"}
	}
	if s.Server.RateLimit < 0 {
		return ValidationError{Path: "server.rate_limit", Message: "must be non-negative"}
	}
	return s.Output.Validate()
}

// Validate checks that the output format is known and has a destination.
func (o OutputConfig) Validate() error {
	known := false
	for _, f := range ValidOutputFormats() {
		if o.Format == f {
			known = true
			break
		}
	}
	if !known {
		return ValidationError{Path: "output.format", Message: fmt.Sprintf("unsupported format %q", o.Format)}
	}

	switch {
	case IsFileFormat(o.Format) && o.File == "":
		return ValidationError{Path: "output.file", Message: "file is required for " + o.Format}
	case o.Format == FormatSQLite && o.File == "" && o.DSN == "":
		return ValidationError{Path: "output.file", Message: "file or dsn is required for sqlite"}
	case (o.Format == FormatPostgres || o.Format == FormatMySQL || o.Format == FormatMongoDB) && o.DSN == "":
		return ValidationError{Path: "output.dsn", Message: "dsn is required for " + o.Format}
	}
	return nil
}

// expandEnvironmentVariables substitutes environment variables in the configuration
func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// applyDefaults applies default values to the settings
func applyDefaults(s *Settings) {
	if s.Concurrency == 0 {
		s.Concurrency = DefaultConcurrency
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.LogFormat == "" {
		s.LogFormat = "text"
	}

	s.Output.Format = strings.ToLower(s.Output.Format)
	if s.Output.Format == "" {
		s.Output.Format = FormatXLSX
	}
	if s.Output.Format == "xls" || s.Output.Format == "excel" {
		s.Output.Format = FormatXLSX
	}
	if s.Output.Format == "md" {
		s.Output.Format = FormatMarkdown
	}
	if s.Output.Format == "yml" {
		s.Output.Format = FormatYAML
	}
	if s.Output.File == "" && IsFileFormat(s.Output.Format) {
		s.Output.File = "products." + FileExtension(s.Output.Format)
	}
	if s.Output.SheetName == "" {
		s.Output.SheetName = DefaultSheetName
	}
	if s.Output.Table == "" {
		s.Output.Table = DefaultTable
	}
	if s.Output.Collection == "" {
		s.Output.Collection = DefaultTable
	}
	if s.Output.Database == "" {
		s.Output.Database = AppName
	}

	if s.Metrics.ListenAddress == "" {
		s.Metrics.ListenAddress = DefaultMetricsAddress
	}
	if s.Server.ListenAddress == "" {
		s.Server.ListenAddress = DefaultServerAddress
	}
	if s.Server.OutputDir == "" {
		s.Server.OutputDir = "."
	}
	if s.Server.MaxJobs == 0 {
		s.Server.MaxJobs = DefaultMaxJobs
	}
}

// ApplyDefaults fills in zero-valued settings, e.g. after command-line
// overrides cleared or changed a field.
func ApplyDefaults(s *Settings) {
	applyDefaults(s)
}

// FileExtension returns the file extension used for a file format.
func FileExtension(format string) string {
	if format == FormatMarkdown {
		return "md"
	}
	return format
}
