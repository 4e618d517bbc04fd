package updates

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"updatenotifier/internal/launcher"
	"updatenotifier/internal/logging"
)

// lockHeldExit is the package-system-locked exit status for a held lock.
const lockHeldExit = 2

// shouldAutoLaunch decides whether the update manager is started without user
// action after a check found updates or a pending reboot.
func (h *Handler) shouldAutoLaunch(ctx context.Context, res CheckResult) bool {
	if h.dpkgLockTaken(ctx) {
		h.logger.Debug("dpkg lock held; not auto-launching")
		return false
	}

	interval := h.settings.AutoLaunchIntervalDays(ctx)
	h.logger.Debug("auto-launch interval", logging.Int("interval_days", interval))
	if interval <= 0 {
		return true
	}

	now := h.now()
	last := h.settings.LaunchTime(ctx)
	if h.securityLaunchDue(ctx, res, now, last) {
		return true
	}

	if newest := NewestLogTimestamp(h.paths.PackageLogGlobs, h.logger); newest.After(last) {
		last = newest
	}
	due := last.Add(time.Duration(interval) * 24 * time.Hour).Before(now)
	h.logger.Debug("regular auto-launch decision",
		logging.Time("last_activity", last),
		logging.Duration("since", now.Sub(last)),
		logging.Bool("due", due),
	)
	return due
}

// securityLaunchDue reports whether security updates or a pending reboot
// justify launching before the regular interval.
func (h *Handler) securityLaunchDue(ctx context.Context, res CheckResult, now, lastLaunch time.Time) bool {
	if res.NumSecurity == 0 && !res.RebootPending {
		return false
	}
	minimal := time.Duration(h.workflow.SecurityLaunchInterval) * time.Second
	if lastLaunch.Add(minimal).After(now) {
		h.logger.Debug("security updates, but update manager was launched recently")
		return false
	}
	if h.securityInstalledUnattended(ctx) {
		h.logger.Debug("security updates are installed by unattended-upgrades")
		return false
	}
	h.logger.Debug("security updates; auto-launching")
	return true
}

// securityInstalledUnattended asks the checker whether unattended-upgrades
// already installs security updates. Exit status > 0 means it does.
func (h *Handler) securityInstalledUnattended(ctx context.Context) bool {
	helpers := h.launcher.Helpers()
	if !launcher.IsExecutable(helpers.UnattendedUpgrades) {
		return false
	}
	res, err := h.launcher.RunLowPriority(ctx, helpers.AptCheck, "--security-updates-unattended")
	if err != nil {
		h.spawnFailed(helpers.AptCheck, err, "security updates are assumed not to be installed unattended")
		return false
	}
	h.logger.Debug("security-updates-unattended", logging.Int("exit_code", res.ExitCode))
	return res.ExitCode > 0
}

// dpkgLockTaken runs package-system-locked through pkexec. Any uncertainty
// counts as not locked.
func (h *Handler) dpkgLockTaken(ctx context.Context) bool {
	helpers := h.launcher.Helpers()
	argv := []string{helpers.PackageSystemLocked}
	if helpers.Pkexec != "" {
		argv = append([]string{helpers.Pkexec}, argv...)
	}
	res, err := h.launcher.Run(ctx, argv...)
	if err != nil {
		h.spawnFailed(helpers.PackageSystemLocked, err, "dpkg lock is assumed free")
		return false
	}
	h.logger.Debug("package-system-locked", logging.Int("exit_code", res.ExitCode))
	return res.ExitCode == lockHeldExit
}

// NewestLogTimestamp returns the newest mtime or ctime among the non-empty
// files matching globs, or the zero time when there are none.
func NewestLogTimestamp(globs []string, logger *slog.Logger) time.Time {
	var newest time.Time
	for _, pattern := range globs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			if logger != nil {
				logger.Debug("bad log glob", logging.String("pattern", pattern), logging.Error(err))
			}
			continue
		}
		for _, path := range matches {
			var st unix.Stat_t
			if err := unix.Stat(path, &st); err != nil {
				continue
			}
			if st.Size == 0 {
				// rotated away by logrotate
				continue
			}
			mtime := time.Unix(st.Mtim.Unix())
			ctime := time.Unix(st.Ctim.Unix())
			if mtime.After(newest) {
				newest = mtime
			}
			if ctime.After(newest) {
				newest = ctime
			}
		}
	}
	return newest
}
