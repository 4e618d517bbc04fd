package hooks_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"updatenotifier/internal/config"
	"updatenotifier/internal/hooks"
	"updatenotifier/internal/launcher"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/store"
	"updatenotifier/internal/testsupport"
	"updatenotifier/internal/tray"
)

type fixture struct {
	cfg       *config.Config
	runner    *testsupport.FakeRunner
	store     *store.Store
	notifier  *testsupport.RecordingNotifier
	presenter *tray.Headless
	admin     bool
	boot      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	testsupport.MkdirAll(t, cfg.Paths.HooksDir)
	return &fixture{
		cfg:       cfg,
		runner:    testsupport.NewFakeRunner(),
		store:     testsupport.MustOpenStore(t, cfg),
		notifier:  &testsupport.RecordingNotifier{},
		presenter: tray.NewHeadless("hook", logging.NewNop()),
		admin:     true,
		boot:      time.Now().Add(-time.Hour),
	}
}

func (f *fixture) handler() *hooks.Handler {
	return hooks.New(hooks.Deps{
		Dir:      f.cfg.Paths.HooksDir,
		Launcher: launcher.New(f.runner, f.cfg.Helpers, false, logging.NewNop()),
		Records:  f.store,
		Notifier: f.notifier,
		Applet:   tray.NewApplet("hook", f.presenter, logging.NewNop()),
		IsAdmin:  func() bool { return f.admin },
		BootTime: func() time.Time { return f.boot },
		Logger:   logging.NewNop(),
	})
}

func (f *fixture) writeHook(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.cfg.Paths.HooksDir, name)
	testsupport.WriteFile(t, path, content)
	return path
}

func TestNewHookShowsApplet(t *testing.T) {
	f := newFixture(t)
	f.writeHook(t, "10-note", "Name: Release notes\nDescription: Read me.\nCommand: xdg-open /usr/share/doc\n")
	h := f.handler()
	h.Init(context.Background())

	if !f.presenter.Visible() || f.presenter.Tooltip() != hooks.Tooltip || f.presenter.Icon() != hooks.Icon {
		t.Fatalf("expected visible hook applet, got visible=%v tooltip=%q icon=%q",
			f.presenter.Visible(), f.presenter.Tooltip(), f.presenter.Icon())
	}
	notices := f.notifier.Kind("hooks")
	if len(notices) != 1 || notices[0].Title != "Release notes" || notices[0].Body != "Read me." {
		t.Fatalf("unexpected notifications %+v", notices)
	}

	// A second check with nothing new must not notify again.
	h.Check(context.Background())
	if got := len(f.notifier.Kind("hooks")); got != 1 {
		t.Fatalf("expected no repeat notification, got %d", got)
	}
}

func TestRunCommandAndMarkRead(t *testing.T) {
	f := newFixture(t)
	f.writeHook(t, "10-note", "Name: Note\nCommand: echo hi\nTerminal: yes\n")
	h := f.handler()
	h.Init(context.Background())

	if !f.presenter.Trigger("Run this action now") {
		t.Fatalf("expected run entry in menu %v", f.presenter.Menu())
	}
	if !f.runner.Ran("x-terminal-emulator", "-e", f.cfg.Helpers.Shell, "-c", "echo hi") {
		t.Fatalf("expected command in a terminal, calls %v", f.runner.Calls())
	}
	records, err := f.store.LoadHooks(context.Background())
	if err != nil {
		t.Fatalf("LoadHooks: %v", err)
	}
	if !records["10-note"].CmdRun || records["10-note"].Seen {
		t.Fatalf("unexpected record after run %+v", records["10-note"])
	}

	if !f.presenter.Trigger("Mark as read") {
		t.Fatal("expected mark-as-read entry")
	}
	if f.presenter.Visible() {
		t.Fatal("expected applet hidden after mark as read")
	}

	// Seen state survives a new handler.
	if n := f.handler().Check(context.Background()); n != 0 {
		t.Fatalf("expected read hook to stay read, got %d unread", n)
	}
}

func TestChangedHookIsUnreadAgain(t *testing.T) {
	f := newFixture(t)
	f.writeHook(t, "10-note", "Name: Note\n")
	h := f.handler()
	h.Init(context.Background())
	h.MarkRead(context.Background())

	f.writeHook(t, "10-note", "Name: Note\nDescription: updated\n")
	if n := h.Check(context.Background()); n != 1 {
		t.Fatalf("expected changed hook unread, got %d", n)
	}
}

func TestDisplayFilters(t *testing.T) {
	tests := []struct {
		name    string
		content string
		admin   bool
		setup   func(f *fixture)
		want    int
	}{
		{name: "admin only hidden for users", content: "Name: A\n", admin: false, want: 0},
		{name: "user hook shown for users", content: "Name: A\nOnlyAdminUsers: false\n", admin: false, want: 1},
		{
			name:    "DisplayIf false",
			content: "Name: A\nDisplayIf: false\n",
			admin:   true,
			setup: func(f *fixture) {
				f.runner.On(launcher.Result{ExitCode: 1}, f.cfg.Helpers.Shell, "-c", "false")
			},
			want: 0,
		},
		{name: "DisplayIf true", content: "Name: A\nDisplayIf: true\n", admin: true, want: 1},
		{
			name:    "written before boot",
			content: "Name: A\nDontShowAfterReboot: true\n",
			admin:   true,
			setup:   func(f *fixture) { f.boot = time.Now().Add(time.Hour) },
			want:    0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.admin = tt.admin
			if tt.setup != nil {
				tt.setup(f)
			}
			f.writeHook(t, "20-hook", tt.content)
			if got := f.handler().Check(context.Background()); got != tt.want {
				t.Fatalf("expected %d unread, got %d", tt.want, got)
			}
		})
	}
}

func TestRemovedHookIsForgotten(t *testing.T) {
	f := newFixture(t)
	path := f.writeHook(t, "10-note", "Name: Note\n")
	h := f.handler()
	h.Init(context.Background())

	testsupport.RemoveFile(t, path)
	if n := h.Check(context.Background()); n != 0 {
		t.Fatalf("expected no unread hooks, got %d", n)
	}
	if f.presenter.Visible() {
		t.Fatal("expected applet hidden")
	}
	records, err := f.store.LoadHooks(context.Background())
	if err != nil {
		t.Fatalf("LoadHooks: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected records cleared, got %v", records)
	}
}

func TestNextCyclesHooks(t *testing.T) {
	f := newFixture(t)
	f.writeHook(t, "10-a", "Name: First\n")
	f.writeHook(t, "20-b", "Name: Second\n")
	h := f.handler()
	h.Init(context.Background())

	notices := f.notifier.Kind("hooks")
	if len(notices) != 1 || notices[0].Title != "First" || notices[0].Action == nil {
		t.Fatalf("unexpected first notification %+v", notices)
	}
	notices[0].Action()
	notices = f.notifier.Kind("hooks")
	if len(notices) != 2 || notices[1].Title != "Second" {
		t.Fatalf("expected second hook presented, got %+v", notices)
	}
	if len(h.Unread()) != 2 {
		t.Fatalf("expected two unread hooks, got %d", len(h.Unread()))
	}
}
