// Package release periodically starts the distribution upgrade checker.
package release

import (
	"context"
	"log/slog"
	"time"

	"updatenotifier/internal/config"
	"updatenotifier/internal/launcher"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/settings"
)

// Checker starts the release upgrade checker at most once per wait period.
type Checker struct {
	launcher *launcher.Launcher
	settings *settings.Settings
	cfg      config.Release
	now      func() time.Time
	logger   *slog.Logger
}

// New returns a Checker. A nil now uses time.Now.
func New(l *launcher.Launcher, s *settings.Settings, cfg config.Release, now func() time.Time, logger *slog.Logger) *Checker {
	if now == nil {
		now = time.Now
	}
	return &Checker{launcher: l, settings: s, cfg: cfg, now: now, logger: logging.NewComponentLogger(logger, "release")}
}

// Interval is how often Check should be called.
func (c *Checker) Interval() time.Duration {
	return time.Duration(c.cfg.CheckInterval) * time.Second
}

// Check starts the checker when the last run is older than the minimum wait
// and records the run. It reports whether the checker was started.
func (c *Checker) Check(ctx context.Context) bool {
	now := c.now()
	last := c.settings.ReleaseCheckTime(ctx)
	wait := time.Duration(c.cfg.MinWaitHours) * time.Hour
	if due := last.Add(wait); due.After(now) {
		c.logger.Debug("release upgrade check not needed", logging.Time("next", due))
		return false
	}

	argv := []string{c.launcher.Helpers().ReleaseChecker}
	if c.cfg.DevelRelease {
		argv = append(argv, "--devel-release")
	}
	c.logger.Debug("running release upgrade checker", logging.Strings("argv", argv))
	if err := c.launcher.Start(argv...); err != nil {
		logging.WarnWithContext(c.logger, "release checker failed to start", "helper_spawn_failed",
			logging.String(logging.FieldHelper, argv[0]),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install ubuntu-release-upgrader-gtk or disable [release]"),
			logging.String(logging.FieldImpact, "new releases are not announced"),
		)
	}
	// Stored even on failure so a missing checker is not retried every tick.
	if err := c.settings.SetReleaseCheckTime(ctx, now); err != nil {
		c.logger.Debug("release check time not stored", logging.Error(err))
	}
	return true
}

// Run checks once immediately and then every Interval until ctx ends.
func (c *Checker) Run(ctx context.Context, dispatch func(func())) {
	check := func() { c.Check(ctx) }
	dispatch(check)
	ticker := time.NewTicker(c.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dispatch(check)
		}
	}
}
