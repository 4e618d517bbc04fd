package store_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"updatenotifier/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "state", "state.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSettingsRoundTripAndDefaults(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if _, err := s.GetBool(ctx, store.NamespaceNotifier, store.KeyNoShowNotifications); !errors.Is(err, store.ErrNotSet) {
		t.Fatalf("expected ErrNotSet for unwritten key, got %v", err)
	}

	if err := s.SetBool(ctx, store.NamespaceNotifier, store.KeyNoShowNotifications, true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if err := s.SetBool(ctx, store.NamespaceNotifier, store.KeyNoShowNotifications, false); err != nil {
		t.Fatalf("SetBool overwrite: %v", err)
	}
	got, err := s.GetBool(ctx, store.NamespaceNotifier, store.KeyNoShowNotifications)
	if err != nil || got {
		t.Fatalf("expected false after overwrite, got %v err=%v", got, err)
	}

	if err := s.SetInt64(ctx, store.NamespaceManager, store.KeyLaunchTime, 1700000000); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}
	launch, err := s.GetInt64(ctx, store.NamespaceManager, store.KeyLaunchTime)
	if err != nil || launch != 1700000000 {
		t.Fatalf("unexpected launch time %d err=%v", launch, err)
	}

	if _, err := s.GetInt64(ctx, store.NamespaceNotifier, store.KeyLaunchTime); !errors.Is(err, store.ErrNotSet) {
		t.Fatalf("expected namespaces to be distinct, got %v", err)
	}

	all, err := s.ListSettings(ctx)
	if err != nil {
		t.Fatalf("ListSettings: %v", err)
	}
	if len(all) != 2 || all[0].Namespace != store.NamespaceManager {
		t.Fatalf("unexpected settings listing: %+v", all)
	}
}

func TestHookRecords(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	rec := store.HookRecord{Filename: "reboot-required", Mtime: 42, Digest: "abc", Seen: true}
	if err := s.SaveHook(ctx, rec); err != nil {
		t.Fatalf("SaveHook: %v", err)
	}
	rec.CmdRun = true
	rec.Digest = "def"
	if err := s.SaveHook(ctx, rec); err != nil {
		t.Fatalf("SaveHook update: %v", err)
	}

	hooks, err := s.LoadHooks(ctx)
	if err != nil {
		t.Fatalf("LoadHooks: %v", err)
	}
	if got := hooks["reboot-required"]; got != rec {
		t.Fatalf("unexpected record: %+v", got)
	}

	if err := s.DeleteHook(ctx, "reboot-required"); err != nil {
		t.Fatalf("DeleteHook: %v", err)
	}
	hooks, err = s.LoadHooks(ctx)
	if err != nil || len(hooks) != 0 {
		t.Fatalf("expected empty hooks after delete, got %v err=%v", hooks, err)
	}

	if err := s.SaveHook(ctx, store.HookRecord{}); err == nil {
		t.Fatal("expected error for empty filename")
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = s.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := store.Open(path); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
