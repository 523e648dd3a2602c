package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerWithOptions_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerWithOptions(LoggerOptions{Level: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Info("hidden message")
	logger.Warnf("visible %s", "warning")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("info message should be filtered at warn level, got: %s", out)
	}
	if !strings.Contains(out, "visible warning") {
		t.Errorf("warn message should be written, got: %s", out)
	}
}

func TestNewLoggerWithOptions_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerWithOptions(LoggerOptions{Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.WithFields(map[string]interface{}{"url": "https://example.com", "links": 3}).Info("seed fetched")

	out := buf.String()
	for _, want := range []string{"seed fetched", "https://example.com", `"links"`, "{"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestNewLoggerWithOptions_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		opts LoggerOptions
	}{
		{name: "bad level", opts: LoggerOptions{Level: "loud"}},
		{name: "bad format", opts: LoggerOptions{Format: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.opts.Output = &buf
			logger, err := NewLoggerWithOptions(tt.opts)
			if err == nil {
				t.Error("expected an error for invalid options")
			}
			if logger == nil {
				t.Fatal("a fallback logger should still be returned")
			}
			logger.Info("still works")
			if !strings.Contains(buf.String(), "still works") {
				t.Errorf("fallback logger should write at info level, got: %s", buf.String())
			}
		})
	}
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.WithField("k", "v").Error("nothing happens")
}
