package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"updatenotifier/internal/crash"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/monitor"
	"updatenotifier/internal/updates"
)

// Updates is the update-availability check as seen by the tick.
type Updates interface {
	Check(ctx context.Context) updates.State
	SetAptRunning(running bool)
	CancelOutdatedNag()
	Status() updates.Status
}

// Hooks is the hook check.
type Hooks interface {
	Check(ctx context.Context) int
}

// Crash is the crash-report check.
type Crash interface {
	Check(ctx context.Context) crash.Outcome
}

// Avahi is the avahi marker check.
type Avahi interface {
	Check(ctx context.Context) bool
}

// Options configure a Loop.
type Options struct {
	Accumulator *monitor.Accumulator
	Events      <-chan monitor.Event
	Interval    time.Duration
	AptIdle     time.Duration
	// Plugins runs the cache-changed scripts. It is called on its own
	// goroutine and must not touch loop state.
	Plugins func(ctx context.Context)
	Now     func() time.Time
	Logger  *slog.Logger
}

// ErrStopped is returned by Call once the loop has exited.
var ErrStopped = errors.New("reconcile loop stopped")

// ErrNotReady is returned by CheckNow before the checks are installed.
var ErrNotReady = errors.New("daemon still starting")

// Loop owns the pending state and runs every check on a single goroutine.
// Filesystem events, timers and control requests are all serialized through
// it.
type Loop struct {
	acc      *monitor.Accumulator
	events   <-chan monitor.Event
	interval time.Duration
	aptIdle  time.Duration
	plugins  func(ctx context.Context)
	now      func() time.Time
	logger   *slog.Logger

	updates Updates
	hooks   Hooks
	crash   Crash
	avahi   Avahi

	posted chan func()
	done   chan struct{}
	once   sync.Once

	ready          bool
	ticks          uint64
	skipped        uint64
	lastTick       time.Time
	pluginsRunning atomic.Bool
	pluginRuns     atomic.Uint64
	// pluginRerun asks the running chain for one more pass. Guarded by
	// pluginMu together with pluginsRunning transitions.
	pluginMu    sync.Mutex
	pluginRerun bool
}

// New returns a loop that is not ready: ticks are skipped until SetHandlers
// installs the checks.
func New(opts Options) *Loop {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 180 * time.Second
	}
	aptIdle := opts.AptIdle
	if aptIdle <= 0 {
		aptIdle = 600 * time.Second
	}
	return &Loop{
		acc:      opts.Accumulator,
		events:   opts.Events,
		interval: interval,
		aptIdle:  aptIdle,
		plugins:  opts.Plugins,
		now:      now,
		logger:   logging.NewComponentLogger(opts.Logger, "misc"),
		posted:   make(chan func(), 64),
		done:     make(chan struct{}),
	}
}

// SetHandlers installs the checks and marks the loop ready. A nil Updates
// disables the update check, as for users outside the admin groups. Call it
// on the loop goroutine, typically from a function passed to Dispatch.
func (l *Loop) SetHandlers(u Updates, h Hooks, c Crash, a Avahi) {
	if u == nil {
		u = disabledUpdates{}
	}
	l.updates, l.hooks, l.crash, l.avahi = u, h, c, a
	l.ready = h != nil && c != nil && a != nil
	l.logger.Debug("handlers installed", logging.Bool("ready", l.ready))
}

// Ready reports whether ticks run.
func (l *Loop) Ready() bool {
	return l.ready
}

// Dispatch queues fn to run on the loop goroutine. It never blocks once the
// loop has stopped; fn is then dropped.
func (l *Loop) Dispatch(fn func()) {
	select {
	case l.posted <- fn:
	case <-l.done:
	}
}

// AfterFunc runs fn on the loop goroutine after d. The returned stop function
// must be called from the loop goroutine; once it returns fn will not run.
func (l *Loop) AfterFunc(d time.Duration, fn func()) func() {
	stopped := false
	timer := time.AfterFunc(d, func() {
		l.Dispatch(func() {
			if !stopped {
				fn()
			}
		})
	})
	return func() {
		stopped = true
		timer.Stop()
	}
}

// Call runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case l.posted <- wrapped:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events, ticks and posted functions until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Debug("reconcile loop started", logging.Duration("interval", l.interval))
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("reconcile loop stopped")
			return nil
		case ev, ok := <-l.events:
			if !ok {
				l.events = nil
				continue
			}
			l.acc.OnPathChanged(ev.Path, ev.Kind, l.now())
		case <-ticker.C:
			l.Tick(ctx)
		case fn := <-l.posted:
			fn()
		}
	}
}

// StateDisabled is reported when no update check is installed.
const StateDisabled = "disabled"

type disabledUpdates struct{}

func (disabledUpdates) Check(context.Context) updates.State { return updates.StateUnknown }
func (disabledUpdates) SetAptRunning(bool)                  {}
func (disabledUpdates) CancelOutdatedNag()                  {}
func (disabledUpdates) Status() updates.Status              { return updates.Status{State: StateDisabled} }
