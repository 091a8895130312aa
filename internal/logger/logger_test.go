package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"overlayserver/internal/config"
)

func newTestLogger(t *testing.T) (*Logger, string) {
	t.Helper()

	cfg := config.Default()
	cfg.LogDirectory = filepath.Join(t.TempDir(), "logs")

	l, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	return l, cfg.LogDirectory
}

func readLog(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestLogger_LevelFiles(t *testing.T) {
	l, dir := newTestLogger(t)

	l.Info("catalog loaded with %d entries", 3)
	l.Warning("fetch failed for tag %d", 1)
	l.Error("tracking start failed: %v", "no features")
	l.Sync()

	info := readLog(t, dir, "info.log")
	warning := readLog(t, dir, "warning.log")
	errorLog := readLog(t, dir, "error.log")

	if !strings.Contains(info, "catalog loaded with 3 entries") {
		t.Errorf("info.log missing info entry: %s", info)
	}
	if strings.Contains(info, "fetch failed") {
		t.Errorf("info.log should not contain warnings: %s", info)
	}
	if !strings.Contains(warning, "fetch failed for tag 1") {
		t.Errorf("warning.log missing warning entry: %s", warning)
	}
	if !strings.Contains(errorLog, "tracking start failed: no features") {
		t.Errorf("error.log missing error entry: %s", errorLog)
	}
}

func TestLogger_CleanLogs(t *testing.T) {
	l, dir := newTestLogger(t)

	l.Warning("something odd")
	if err := l.CleanLogs("warning.log"); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}
	l.Sync()

	if got := readLog(t, dir, "warning.log"); got != "" {
		t.Errorf("Expected empty warning.log, got %q", got)
	}
}

func TestLogger_CleanLogsRejectsTraversal(t *testing.T) {
	l, dir := newTestLogger(t)
	defer l.Sync()

	outside := filepath.Join(filepath.Dir(dir), "secret.log")
	if err := os.WriteFile(outside, []byte("keep"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	_ = l.CleanLogs("../secret.log")

	data, err := os.ReadFile(outside)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "keep" {
		t.Error("CleanLogs truncated a file outside the log directory")
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("ignored %d", 1)
	l.Error("ignored")
	if err := l.CleanLogs("info.log"); err != nil {
		t.Errorf("Expected nil error from nop logger, got %v", err)
	}
}
