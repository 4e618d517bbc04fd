package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"updatenotifier/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckReadable_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckReadable("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckNtfy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"healthy":true}`))
	}))
	defer srv.Close()

	tests := []struct {
		name  string
		topic string
		want  bool
	}{
		{name: "healthy server", topic: srv.URL + "/updates", want: true},
		{name: "invalid url", topic: "not a url", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckNtfy(context.Background(), tt.topic)
			if result.Passed != tt.want {
				t.Fatalf("expected passed=%v, got %#v", tt.want, result)
			}
		})
	}
}

func TestCheckNtfy_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if result := CheckNtfy(context.Background(), srv.URL+"/updates"); result.Passed {
		t.Fatal("expected failure for unhealthy server")
	}
}

func TestCheckBusName_NoBus(t *testing.T) {
	if result := CheckBusName(nil, "Tray host", statusNotifierWatcher); result.Passed {
		t.Fatal("expected failure without a session bus")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_HeadlessConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDirectories())

	results := RunAll(context.Background(), cfg, nil)
	// state + log + every watched directory
	if want := 2 + len(cfg.WatchedDirs()); len(results) != want {
		t.Fatalf("expected %d results, got %d", want, len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}
}

func TestRunAll_ReportsMissingBus(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDirectories())
	cfg.Notifications.Desktop = true

	failed := Failed(RunAll(context.Background(), cfg, nil))
	if len(failed) != 1 || failed[0].Name != "Notification daemon" {
		t.Fatalf("expected only the notification daemon check to fail, got %#v", failed)
	}
}
