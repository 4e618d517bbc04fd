package deps

import (
	"os"
	"path/filepath"
	"testing"

	"updatenotifier/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "apt-check")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	notExec := filepath.Join(binDir, "apport-gtk")
	if err := os.WriteFile(notExec, []byte("data"), 0o644); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "NotExecutable", Command: notExec, Optional: true},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available {
		t.Fatal("expected non-executable file unavailable")
	}
	if results[3].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[3].Detail)
	}
}

func TestMissingRequiredIgnoresOptional(t *testing.T) {
	h := config.Default().Helpers
	h.AptCheck = filepath.Join(t.TempDir(), "apt-check")
	h.Shell = "/bin/sh"

	missing := MissingRequired(CheckBinaries(HelperRequirements(h)))
	if len(missing) != 1 || missing[0].Name != "apt-check" {
		t.Fatalf("expected only apt-check missing, got %#v", missing)
	}
}
