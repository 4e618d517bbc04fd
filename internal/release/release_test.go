package release

import (
	"context"
	"testing"
	"time"

	"updatenotifier/internal/launcher"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/settings"
	"updatenotifier/internal/testsupport"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		lastCheck time.Duration
		devel     bool
		wantRun   bool
		wantArgv  []string
	}{
		{name: "never checked", wantRun: true},
		{name: "checked recently", lastCheck: 3 * time.Hour, wantRun: false},
		{name: "wait elapsed", lastCheck: 49 * time.Hour, wantRun: true},
		{name: "devel release", lastCheck: 72 * time.Hour, devel: true, wantRun: true, wantArgv: []string{"--devel-release"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			cfg.Release.DevelRelease = tt.devel
			now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
			backend := testsupport.NewMemorySettings()
			s := settings.New(backend, cfg.Settings, logging.NewNop())
			if tt.lastCheck > 0 {
				_ = s.SetReleaseCheckTime(context.Background(), now.Add(-tt.lastCheck))
			}
			runner := testsupport.NewFakeRunner()
			c := New(launcher.New(runner, cfg.Helpers, false, logging.NewNop()), s, cfg.Release, func() time.Time { return now }, logging.NewNop())

			if got := c.Check(context.Background()); got != tt.wantRun {
				t.Fatalf("expected run=%v, got %v", tt.wantRun, got)
			}
			argv := append([]string{cfg.Helpers.ReleaseChecker}, tt.wantArgv...)
			if got := runner.Ran(argv...); got != tt.wantRun {
				t.Fatalf("checker started = %v, want %v (calls %v)", got, tt.wantRun, runner.Calls())
			}
			if tt.wantRun && !s.ReleaseCheckTime(context.Background()).Equal(now) {
				t.Fatalf("expected check time stored, got %v", s.ReleaseCheckTime(context.Background()))
			}
		})
	}
}
