// internal/utils/logger.go

package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// Logger defines the interface for logging throughout the application.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LoggerOptions configures a Logger created by NewLogger.
type LoggerOptions struct {
	Level  string // debug, info, warn, error
	Format string // text, json, logfmt
	Output io.Writer
	Prefix string
}

// charmLogger adapts charmbracelet/log to the Logger interface.
type charmLogger struct {
	l *log.Logger
}

// NewLogger creates a logger writing to stderr at info level.
func NewLogger() Logger {
	l, _ := NewLoggerWithOptions(LoggerOptions{})
	return l
}

// NewLoggerWithOptions creates a logger from the given options. An unknown
// level or format is reported as an error and the logger falls back to
// the defaults.
func NewLoggerWithOptions(opts LoggerOptions) (Logger, error) {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	var firstErr error

	level := log.InfoLevel
	if opts.Level != "" {
		parsed, err := log.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			firstErr = fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		} else {
			level = parsed
		}
	}

	formatter := log.TextFormatter
	switch strings.ToLower(opts.Format) {
	case "", "text":
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	default:
		if firstErr == nil {
			firstErr = fmt.Errorf("invalid log format %q", opts.Format)
		}
	}

	l := log.NewWithOptions(opts.Output, log.Options{
		Level:           level,
		Formatter:       formatter,
		Prefix:          opts.Prefix,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
	})

	return &charmLogger{l: l}, firstErr
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &charmLogger{l: log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})}
}

func (c *charmLogger) Debug(msg string) { c.l.Debug(msg) }

func (c *charmLogger) Debugf(format string, args ...interface{}) { c.l.Debugf(format, args...) }

func (c *charmLogger) Info(msg string) { c.l.Info(msg) }

func (c *charmLogger) Infof(format string, args ...interface{}) { c.l.Infof(format, args...) }

func (c *charmLogger) Warn(msg string) { c.l.Warn(msg) }

func (c *charmLogger) Warnf(format string, args ...interface{}) { c.l.Warnf(format, args...) }

func (c *charmLogger) Error(msg string) { c.l.Error(msg) }

func (c *charmLogger) Errorf(format string, args ...interface{}) { c.l.Errorf(format, args...) }

func (c *charmLogger) WithField(key string, value interface{}) Logger {
	return &charmLogger{l: c.l.With(key, value)}
}

// WithFields attaches fields in sorted key order so output is stable.
func (c *charmLogger) WithFields(fields map[string]interface{}) Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	return &charmLogger{l: c.l.With(kv...)}
}
