package reconcile

import (
	"context"
	"time"

	"updatenotifier/internal/monitor"
	"updatenotifier/internal/updates"
)

// Status is a snapshot of the loop for control clients.
type Status struct {
	Ready          bool                 `json:"ready"`
	Ticks          uint64               `json:"ticks"`
	SkippedTicks   uint64               `json:"skipped_ticks"`
	LastTick       time.Time            `json:"last_tick"`
	Interval       time.Duration        `json:"interval"`
	Pending        monitor.PendingState `json:"pending"`
	PluginsRunning bool                 `json:"plugins_running"`
	PluginRuns     uint64               `json:"plugin_runs"`
	Updates        *updates.Status      `json:"updates,omitempty"`
}

// Status collects a snapshot on the loop goroutine.
func (l *Loop) Status(ctx context.Context) (Status, error) {
	var st Status
	err := l.Call(ctx, func() {
		st = l.snapshot()
	})
	return st, err
}

func (l *Loop) snapshot() Status {
	st := Status{
		Ready:          l.ready,
		Ticks:          l.ticks,
		SkippedTicks:   l.skipped,
		LastTick:       l.lastTick,
		Interval:       l.interval,
		Pending:        l.Pending(),
		PluginsRunning: l.pluginsRunning.Load(),
		PluginRuns:     l.pluginRuns.Load(),
	}
	if l.updates != nil {
		us := l.updates.Status()
		st.Updates = &us
	}
	return st
}

// CheckNow forces an update check on the loop goroutine and returns the
// resulting status.
func (l *Loop) CheckNow(ctx context.Context) (updates.Status, error) {
	var st updates.Status
	var notReady bool
	err := l.Call(ctx, func() {
		if l.updates == nil {
			notReady = true
			return
		}
		l.updates.Check(ctx)
		st = l.updates.Status()
	})
	if err != nil {
		return updates.Status{}, err
	}
	if notReady {
		return updates.Status{}, ErrNotReady
	}
	return st, nil
}
