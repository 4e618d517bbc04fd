package avahi

import (
	"context"
	"path/filepath"
	"testing"

	"updatenotifier/internal/logging"
	"updatenotifier/internal/testsupport"
)

func TestCheck(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "disabled-for-unicast-local")
	rec := &testsupport.RecordingNotifier{}
	n := New(marker, rec, logging.NewNop())

	if n.Check(context.Background()) {
		t.Fatal("expected no marker")
	}
	if len(rec.Notices()) != 0 {
		t.Fatal("expected no notification without the marker")
	}

	testsupport.WriteFile(t, marker, "")
	if !n.Check(context.Background()) {
		t.Fatal("expected marker found")
	}
	if got := len(rec.Kind("avahi")); got != 1 {
		t.Fatalf("expected one avahi notification, got %d", got)
	}
}
