package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"beatforge/internal/services"
)

func TestConsoleHandlerFormatsRecord(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Info("beat analysis complete", String(FieldComponent, "intake"), String("asset", "track01"), Int("beats", 128))

	line := buf.String()
	if !strings.Contains(line, "INFO intake: beat analysis complete") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "asset=track01") || !strings.Contains(line, "beats=128") {
		t.Fatalf("missing attrs: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger.Error("stage failed", String("reason", "exit status 1"))
	if !strings.Contains(buf.String(), `reason="exit status 1"`) {
		t.Fatalf("expected quoted value: %q", buf.String())
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	ctx := services.WithAsset(context.Background(), "clip01")
	ctx = services.WithStage(ctx, "enhance")
	WithContext(ctx, logger).Info("stage started")

	line := buf.String()
	if !strings.Contains(line, "asset=clip01") || !strings.Contains(line, "stage=enhance") {
		t.Fatalf("context fields missing: %q", line)
	}
}

func TestNewComponentLoggerTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	NewComponentLogger(logger, "watcher").Info("folder registered")
	if !strings.Contains(buf.String(), "INFO watcher: folder registered") {
		t.Fatalf("component prefix missing: %q", buf.String())
	}
}

func TestNewComponentLoggerNilBase(t *testing.T) {
	logger := NewComponentLogger(nil, "daemon")
	if logger == nil {
		t.Fatal("expected usable logger for nil base")
	}
	logger.Info("discarded")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
