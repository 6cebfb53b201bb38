package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func parseEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output as JSON: %v\noutput: %s", err, buf.String())
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"debug level", "debug"},
		{"info level", "info"},
		{"warn level", "warn"},
		{"error level", "error"},
		{"invalid level defaults to info", "invalid"},
		{"empty level defaults to info", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.level)
			if log == nil {
				t.Fatal("New returned nil")
			}
			if log.Logger == nil {
				t.Error("Expected embedded slog.Logger to be set")
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		log        func(l *Logger)
		wantOutput bool
	}{
		{"debug suppressed at info", "info", func(l *Logger) { l.Debug("msg") }, false},
		{"info emitted at info", "info", func(l *Logger) { l.Info("msg") }, true},
		{"warn suppressed at error", "error", func(l *Logger) { l.Warn("msg") }, false},
		{"error emitted at error", "error", func(l *Logger) { l.Error("msg") }, true},
		{"debug emitted at debug", "debug", func(l *Logger) { l.Debug("msg") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(tt.level, &buf)
			tt.log(log)
			if got := buf.Len() > 0; got != tt.wantOutput {
				t.Errorf("output emitted = %v, want %v (output: %q)", got, tt.wantOutput, buf.String())
			}
		})
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info("test message", "key", "value")

	entry := parseEntry(t, &buf)
	if _, ok := entry["timestamp"]; !ok {
		t.Error("Expected timestamp field in JSON output")
	}
	if entry["level"] != "info" {
		t.Errorf("Expected level 'info', got %v", entry["level"])
	}
	if entry["message"] != "test message" {
		t.Errorf("Expected message 'test message', got %v", entry["message"])
	}
	if entry["key"] != "value" {
		t.Errorf("Expected key 'value', got %v", entry["key"])
	}
}

func TestLogger_LevelNames(t *testing.T) {
	tests := []struct {
		name string
		log  func(l *Logger)
		want string
	}{
		{"warn renamed to warning", func(l *Logger) { l.Warn("msg") }, "warning"},
		{"error lowercased", func(l *Logger) { l.Error("msg") }, "error"},
		{"debug lowercased", func(l *Logger) { l.Debug("msg") }, "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter("debug", &buf)
			tt.log(log)
			entry := parseEntry(t, &buf)
			if entry["level"] != tt.want {
				t.Errorf("Expected level %q, got %v", tt.want, entry["level"])
			}
		})
	}
}

func TestLogger_WithModule(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithModule("scraper").Info("module test")

	entry := parseEntry(t, &buf)
	if entry["module"] != "scraper" {
		t.Errorf("Expected module 'scraper', got %v", entry["module"])
	}
}

func TestLogger_WithRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithRequestID("req-123").Info("request test")

	entry := parseEntry(t, &buf)
	if entry["request_id"] != "req-123" {
		t.Errorf("Expected request_id 'req-123', got %v", entry["request_id"])
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithError(errors.New("catalog fetch failed")).Error("error test")

	entry := parseEntry(t, &buf)
	errStr, ok := entry["error"].(string)
	if !ok || !strings.Contains(errStr, "catalog fetch failed") {
		t.Errorf("Expected error field containing 'catalog fetch failed', got %v", entry["error"])
	}
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithFields(map[string]any{
		"course_id": "COMP 250",
		"count":     3,
	}).Info("fields test")

	entry := parseEntry(t, &buf)
	if entry["course_id"] != "COMP 250" {
		t.Errorf("Expected course_id 'COMP 250', got %v", entry["course_id"])
	}
	if entry["count"] != float64(3) {
		t.Errorf("Expected count 3, got %v", entry["count"])
	}
}

func TestLogger_WithField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithField("department", "COMP").Info("field test")

	entry := parseEntry(t, &buf)
	if entry["department"] != "COMP" {
		t.Errorf("Expected department 'COMP', got %v", entry["department"])
	}
}

func TestLogger_Infof(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Infof("loaded %d courses for %s", 42, "COMP")

	entry := parseEntry(t, &buf)
	if entry["message"] != "loaded 42 courses for COMP" {
		t.Errorf("Unexpected message: %v", entry["message"])
	}
}

func TestLogger_ShutdownWithoutRemoteSink(t *testing.T) {
	log := NewWithWriter("info", &bytes.Buffer{})
	if err := log.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown without remote sink should be a no-op, got %v", err)
	}

	var nilLogger *Logger
	if err := nilLogger.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown on nil logger should be a no-op, got %v", err)
	}
}
