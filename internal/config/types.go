// internal/config/types.go

// Package config provides the configuration types for CatalogScrapexter.
// A crawl is described by two independent documents: a profile, which says
// what to crawl (seed URL and selectors), and settings, which say how to run
// it (concurrency, timeouts, output destination, logging).
package config

import (
	"fmt"
	"strings"
	"time"
)

// AppName is used for default directories and metric namespaces.
const AppName = "catalogscrapexter"

// CrawlConfig is the immutable description of a single run. It is passed
// by value so a running pipeline never observes later edits.
type CrawlConfig struct {
	SeedURL             string `json:"seed_url" yaml:"seed_url"`
	LinkSelector        string `json:"link_selector" yaml:"link_selector"`
	TitleSelector       string `json:"title_selector,omitempty" yaml:"title_selector,omitempty"`
	ImageSelector       string `json:"image_selector,omitempty" yaml:"image_selector,omitempty"`
	DescriptionSelector string `json:"description_selector,omitempty" yaml:"description_selector,omitempty"`
	SpecsSelector       string `json:"specs_selector,omitempty" yaml:"specs_selector,omitempty"`
}

// Validate checks the fields that must be present before a run starts.
func (c CrawlConfig) Validate() error {
	if strings.TrimSpace(c.SeedURL) == "" {
		return ValidationError{Path: "url", Message: "seed URL cannot be empty"}
	}
	if strings.TrimSpace(c.LinkSelector) == "" {
		return ValidationError{Path: "link_pattern", Message: "link selector cannot be empty"}
	}
	return nil
}

// Settings controls how a crawl is executed.
type Settings struct {
	Concurrency    int               `yaml:"concurrency" json:"concurrency"`
	RequestTimeout time.Duration     `yaml:"request_timeout" json:"request_timeout"`
	RateLimit      float64           `yaml:"rate_limit" json:"rate_limit"`
	MaxBodyBytes   int64             `yaml:"max_body_bytes" json:"max_body_bytes"`
	UserAgents     []string          `yaml:"user_agents,omitempty" json:"user_agents,omitempty"`
	Headers        map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	LogLevel       string            `yaml:"log_level" json:"log_level"`
	LogFormat      string            `yaml:"log_format" json:"log_format"`
	Output         OutputConfig      `yaml:"output" json:"output"`
	Metrics        MetricsConfig     `yaml:"metrics" json:"metrics"`
	Server         ServerConfig      `yaml:"server" json:"server"`
}

// OutputConfig selects the export sink.
type OutputConfig struct {
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	SheetName  string `yaml:"sheet_name,omitempty" json:"sheet_name,omitempty"`
	DSN        string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Table      string `yaml:"table,omitempty" json:"table,omitempty"`
	Database   string `yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint of the CLI.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	ListenAddress string `yaml:"listen_address" json:"listen_address"`
}

// ServerConfig controls the HTTP API started by "serve".
type ServerConfig struct {
	ListenAddress string  `yaml:"listen_address" json:"listen_address"`
	OutputDir     string  `yaml:"output_dir" json:"output_dir"`
	APIKey        string  `yaml:"api_key,omitempty" json:"-"`
	RateLimit     float64 `yaml:"rate_limit" json:"rate_limit"`
	MaxJobs       int     `yaml:"max_jobs" json:"max_jobs"`
}

// Supported output formats.
const (
	FormatXLSX     = "xlsx"
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatYAML     = "yaml"
	FormatSQLite   = "sqlite"
	FormatPostgres = "postgres"
	FormatMySQL    = "mysql"
	FormatMongoDB  = "mongodb"
)

// ValidOutputFormats returns all valid output format values.
func ValidOutputFormats() []string {
	return []string{FormatXLSX, FormatCSV, FormatJSON, FormatMarkdown, FormatYAML, FormatSQLite, FormatPostgres, FormatMySQL, FormatMongoDB}
}

// IsFileFormat reports whether the format writes a local file.
func IsFileFormat(format string) bool {
	switch format {
	case FormatXLSX, FormatCSV, FormatJSON, FormatMarkdown, FormatYAML:
		return true
	}
	return false
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Path, ve.Message)
}
