package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"papersum/internal/config"
	"papersum/internal/logging"
	"papersum/internal/services"
)

func plain() *bool {
	off := false
	return &off
}

func TestConsoleLoggerFormatsSubjectAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf, Color: plain()})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer closeLog()

	ctx := services.WithItemID(context.Background(), "attention")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "report")).
		Info("summary written", logging.String("artifact", "out/attention.md"))

	line := buf.String()
	want := "INFO [report] attention – summary written artifact=out/attention.md"
	if !strings.Contains(line, want) {
		t.Fatalf("expected %q in %q", want, line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no ANSI codes when color is disabled, got %q", line)
	}
}

func TestConsoleLoggerColorsLevels(t *testing.T) {
	var buf bytes.Buffer
	on := true
	logger, _, err := logging.New(logging.Options{Writer: &buf, Color: &on})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("slow down")
	if !strings.Contains(buf.String(), "\x1b[33mWARN\x1b[0m") {
		t.Fatalf("expected colored WARN label, got %q", buf.String())
	}
}

func TestConsoleLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Level: "warn", Writer: &buf, Color: plain()})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
}

func TestJSONLoggerUsesStableKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithRunID(context.Background(), "run-1")
	logging.WithContext(ctx, logger).Warn("retryable failure", logging.Int(logging.FieldAttempt, 2))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if entry["level"] != "warn" || entry["msg"] != "retryable failure" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if entry[logging.FieldRunID] != "run-1" || entry[logging.FieldAttempt] != float64(2) {
		t.Fatalf("missing context fields in %v", entry)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesRotatedFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.File = true

	var console bytes.Buffer
	logger, closeLog, err := logging.NewFromConfig(&cfg, &console)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("to both sinks")
	if err := closeLog(); err != nil {
		t.Fatalf("close: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"to both sinks"`) {
		t.Fatalf("expected json line in log file, got %q", content)
	}
	if !strings.Contains(console.String(), "to both sinks") {
		t.Fatalf("expected console output, got %q", console.String())
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, _, _ := logging.New(logging.Options{Format: "json", Writer: &buf})
	logging.WarnWithContext(logger, "item failed", "item_failed", logging.String(logging.FieldErrorHint, "check the api key"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldEventType] != "item_failed" || entry[logging.FieldErrorHint] != "check the api key" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry[logging.FieldImpact] == nil {
		t.Fatalf("expected default impact, got %v", entry)
	}
}

func TestAlertAttrUsesAlertKey(t *testing.T) {
	var buf bytes.Buffer
	logger, _, _ := logging.New(logging.Options{Format: "json", Writer: &buf})
	logging.WarnWithContext(logger, "model returned no text", "empty_summary", logging.Alert("empty_summary"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldAlert] != "empty_summary" {
		t.Fatalf("expected alert field, got %v", entry)
	}
}
