package daemonrun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"updatenotifier/internal/daemon"
	"updatenotifier/internal/testsupport"
)

func TestComponentLevels(t *testing.T) {
	got := componentLevels(map[string]string{"updates": "warn", "tray": "info"}, []string{"updates", "inotify"})
	want := map[string]string{"updates": "debug", "tray": "info", "inotify": "debug"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("component %s: expected %q, got %q", k, v, got[k])
		}
	}
	if componentLevels(nil, nil) != nil {
		t.Fatal("expected nil levels without overrides")
	}
}

func TestEnsureCurrentLogPointerReplaces(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "update-notifier-1.log")
	second := filepath.Join(dir, "update-notifier-2.log")
	for _, p := range []string{first, second} {
		if err := os.WriteFile(p, []byte(filepath.Base(p)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "update-notifier.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "update-notifier-2.log" {
		t.Fatalf("pointer resolves to %q", data)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "update-notifier.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 2 || data[len(data)-1] != '\n' {
		t.Fatalf("unexpected pid file %q", data)
	}
}

func TestSecondInstanceKeepsLogPointer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("hold lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	running := filepath.Join(cfg.Paths.LogDir, "update-notifier-running.log")
	if err := os.WriteFile(running, []byte("running instance\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, running); err != nil {
		t.Fatalf("pointer: %v", err)
	}

	err = Run(context.Background(), cfg, Options{Force: true, StartupDelay: -1})
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "update-notifier.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "running instance\n" {
		t.Fatalf("log pointer moved to the second instance: %q", data)
	}
	if _, err := os.Stat(running); err != nil {
		t.Fatalf("running instance log removed: %v", err)
	}
}
