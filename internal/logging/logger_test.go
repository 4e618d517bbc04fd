package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"updatenotifier/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "inotify").Info("watch added", logging.String(logging.FieldPath, "/var/crash"))

	content := readLog(t, logPath)
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if !strings.Contains(content, "INFO [inotify] watch added path=/var/crash") {
		t.Fatalf("unexpected console line: %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")
	if content := readLog(t, logPath); !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}, SessionID: "run-1"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "helper failed", "helper_failed", logging.String(logging.FieldHelper, "apt-check"))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	checks := map[string]string{
		"level":                "warn",
		"msg":                  "helper failed",
		logging.FieldEventType: "helper_failed",
		logging.FieldHelper:    "apt-check",
		logging.FieldSessionID: "run-1",
		logging.FieldErrorHint: "check logs for details",
		logging.FieldImpact:    "operation completed with warnings",
	}
	for key, want := range checks {
		if got, _ := entry[key].(string); got != want {
			t.Fatalf("field %s: got %q want %q", key, got, want)
		}
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatal("expected ts field")
	}
}

func TestComponentLevelOverrides(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "components.log")
	logger, err := logging.New(logging.Options{
		Format:          "console",
		Level:           "info",
		OutputPaths:     []string{logPath},
		ComponentLevels: map[string]string{"hooks": "debug"},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "hooks").Debug("hook scanned")
	logging.NewComponentLogger(logger, "update").Debug("checker output")
	logger.Debug("inline component", logging.String(logging.FieldComponent, "hooks"))
	logger.Debug("root debug")
	logger.Info("root info")

	content := readLog(t, logPath)
	for _, want := range []string{"hook scanned", "inline component", "root info"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in output, got %q", want, content)
		}
	}
	for _, unwanted := range []string{"checker output", "root debug"} {
		if strings.Contains(content, unwanted) {
			t.Fatalf("did not expect %q in output, got %q", unwanted, content)
		}
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestTeeLoggerWritesBoth(t *testing.T) {
	dir := t.TempDir()
	first, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{filepath.Join(dir, "a.log")}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	second, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{filepath.Join(dir, "b.log")}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.TeeLogger(first, second).With(logging.String(logging.FieldComponent, "daemon")).Info("started")
	for _, name := range []string{"a.log", "b.log"} {
		if content := readLog(t, filepath.Join(dir, name)); !strings.Contains(content, "started") {
			t.Fatalf("expected %s to contain record, got %q", name, content)
		}
	}
}

func TestPruneRunLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "update-notifier-old.log")
	current := filepath.Join(dir, "update-notifier-current.log")
	fresh := filepath.Join(dir, "update-notifier-fresh.log")
	for _, path := range []string{old, current, fresh} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	for _, path := range []string{old, current} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.PruneRunLogs(logging.NewNop(), dir, "update-notifier-*.log", 14, current)
	if removed != 1 {
		t.Fatalf("expected one file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{current, fresh} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
	if logging.PruneRunLogs(nil, dir, "*.log", 0, "") != 0 {
		t.Fatal("expected zero retention to disable pruning")
	}
}
