package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		enable slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"warn level", "warn", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"uppercase level", "DEBUG", slog.LevelDebug},
		{"padded level", " warn ", slog.LevelWarn},
		{"default info", "", slog.LevelInfo},
		{"unknown falls back to info", "verbose", slog.LevelInfo},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
			}
		})
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()

	// Won't panic if properly initialized
	logger.Info("test message", "key", "value")

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("Default() should enable info level")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("Default() should not enable debug level (info is higher)")
	}

	if logger.Logger == nil {
		t.Fatal("Default() returned Logger with nil slog.Logger")
	}
}

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")
	logger.Info("hello", "business_id", "biz-1")

	line := buf.String()
	if !strings.Contains(line, `"msg":"hello"`) || !strings.Contains(line, `"business_id":"biz-1"`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}

func TestWith(t *testing.T) {
	logger := Default()
	scoped := logger.With("business_id", "biz-1")
	if scoped == nil || scoped.Logger == nil {
		t.Fatal("With() returned a nil logger")
	}
	if scoped == logger {
		t.Error("With() should return a new Logger instance")
	}
	scoped.Info("scoped message")
}
