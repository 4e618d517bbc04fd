package reconcile

import (
	"context"
	"time"

	"updatenotifier/internal/logging"
	"updatenotifier/internal/monitor"
)

// Tick runs one reconciliation pass over the pending state. It returns false
// when the loop is not ready yet, in which case the state is left untouched
// for the next tick.
func (l *Loop) Tick(ctx context.Context) bool {
	if !l.ready {
		l.skipped++
		l.logger.Debug("tick skipped; applets not created yet")
		return false
	}
	l.ticks++
	now := l.now()
	l.lastTick = now
	s := l.acc.State()
	l.logger.Debug("tick",
		logging.Bool("dpkg_ran", s.DpkgRan),
		logging.Bool("apt_running", s.AptRunning),
		logging.Bool("hook_pending", s.HookPending),
		logging.Bool("crash_pending", s.CrashPending),
		logging.Bool("avahi_pending", s.AvahiPending),
	)

	// A new run stamp means the package operation finished.
	if s.DpkgRan {
		// Cancelled first so a check that still finds stale data can
		// schedule a fresh nag.
		l.updates.CancelOutdatedNag()
		l.updates.Check(ctx)
		l.startPlugins(ctx)
		l.updates.SetAptRunning(false)
		s.AptRunning = false
		s.LastAptAction = time.Time{}
	}

	if s.HookPending {
		l.hooks.Check(ctx)
		s.HookPending = false
	}

	if s.AptRunning {
		l.updates.SetAptRunning(true)
	}

	if !s.LastAptAction.IsZero() && now.Sub(s.LastAptAction) > l.aptIdle {
		l.logger.Debug("no apt activity; assuming it finished", logging.Duration("idle", now.Sub(s.LastAptAction)))
		l.updates.SetAptRunning(false)
		l.updates.Check(ctx)
		s.LastAptAction = time.Time{}
	}

	if s.CrashPending {
		l.crash.Check(ctx)
		s.CrashPending = false
	}

	if s.AvahiPending {
		l.avahi.Check(ctx)
		s.AvahiPending = false
	}

	s.DpkgRan = false
	s.AptRunning = false
	return true
}

// startPlugins runs the cache-changed scripts on their own goroutine. Chains
// never overlap: a request while one runs queues a single follow-up pass.
func (l *Loop) startPlugins(ctx context.Context) {
	if l.plugins == nil {
		return
	}
	l.pluginMu.Lock()
	defer l.pluginMu.Unlock()
	if l.pluginsRunning.Load() {
		l.pluginRerun = true
		l.logger.Debug("plugin chain still running; queued another pass")
		return
	}
	l.pluginsRunning.Store(true)
	go l.runPlugins(ctx)
}

func (l *Loop) runPlugins(ctx context.Context) {
	for {
		l.pluginRuns.Add(1)
		l.plugins(ctx)

		l.pluginMu.Lock()
		again := l.pluginRerun && ctx.Err() == nil
		l.pluginRerun = false
		if !again {
			l.pluginsRunning.Store(false)
		}
		l.pluginMu.Unlock()
		if !again {
			return
		}
	}
}

// Pending returns a copy of the pending state. Call it on the loop goroutine.
func (l *Loop) Pending() monitor.PendingState {
	if l.acc == nil {
		return monitor.PendingState{}
	}
	return *l.acc.State()
}
