package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/gofrs/flock"

	"updatenotifier/internal/config"
	"updatenotifier/internal/launcher"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/monitor"
	"updatenotifier/internal/notifications"
	"updatenotifier/internal/reconcile"
	"updatenotifier/internal/release"
	"updatenotifier/internal/settings"
	"updatenotifier/internal/store"
	"updatenotifier/internal/sysuser"
	"updatenotifier/internal/tray"
	"updatenotifier/internal/uevent"
	"updatenotifier/internal/updates"
)

// ErrAlreadyRunning is returned by Start when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another update-notifier instance is already running")

// Options adjust how the daemon is wired.
type Options struct {
	// Force starts the update applet for users outside the admin groups.
	Force bool
	// Runner executes helpers. Defaults to the exec runner.
	Runner launcher.Runner
	// Bus is the session bus. Nil connects to it when a bus-backed tray or
	// desktop notifications are configured.
	Bus *dbus.Conn
	// Notifier overrides the configured notification transports.
	Notifier notifications.Service
	// Users answers the admin question. Defaults to the system user database.
	Users *sysuser.Checker
	// DisableHardware skips the uevent monitor.
	DisableHardware bool
	// LogPath is reported in status output.
	LogPath string
}

// Daemon coordinates the watches, the loop and the checks, and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	opts   Options

	store    *store.Store
	launcher *launcher.Launcher
	settings *settings.Settings
	users    *sysuser.Checker

	lockPath string
	lock     *flock.Flock

	acc      *monitor.Accumulator
	source   *monitor.Source
	loop     *reconcile.Loop
	bus      *dbus.Conn
	ownsBus  bool
	notifier notifications.Service
	factory  *tray.Factory
	printers *uevent.Monitor
	release  *release.Checker

	mu        sync.Mutex
	applets   []*tray.Applet
	admin     bool
	startedAt time.Time

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool             `json:"running"`
	PID          int              `json:"pid"`
	StartedAt    time.Time        `json:"started_at"`
	Admin        bool             `json:"admin"`
	TrayBackend  string           `json:"tray_backend"`
	LockFilePath string           `json:"lock_path"`
	StorePath    string           `json:"store_path"`
	LogPath      string           `json:"log_path"`
	Watched      []string         `json:"watched"`
	Applets      []tray.Snapshot  `json:"applets"`
	Loop         reconcile.Status `json:"loop"`
}

// New constructs a daemon. It does not touch the lock, the bus or the
// filesystem watches until Start.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	runner := opts.Runner
	if runner == nil {
		runner = launcher.NewExecRunner(logger)
	}
	users := opts.Users
	if users == nil {
		users = sysuser.New()
	}
	l := launcher.New(runner, cfg.Helpers, cfg.Workflow.ForcePkexec, logger)
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "misc"),
		opts:     opts,
		store:    st,
		launcher: l,
		settings: settings.New(st, cfg.Settings, logger),
		users:    users,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Settings returns the persisted desktop settings.
func (d *Daemon) Settings() *settings.Settings {
	return d.settings
}

// Start acquires the lock, starts the watches and the loop, and schedules
// applet creation after the startup delay.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.startLocked(d.ctx); err != nil {
		d.cancel()
		d.teardown()
		_ = d.lock.Unlock()
		return err
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("update-notifier daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Duration("startup_delay", d.cfg.StartupDelay()),
	)
	return nil
}

func (d *Daemon) startLocked(ctx context.Context) error {
	d.acc = monitor.NewAccumulator(monitor.NewRules(d.cfg.Paths), d.logger)
	source, err := monitor.NewSource(d.logger)
	if err != nil {
		return fmt.Errorf("start event source: %w", err)
	}
	d.source = source
	watched := source.Subscribe(d.cfg.WatchedDirs(), d.cfg.WatchedFiles())
	d.logger.Debug("watches subscribed", logging.Int("count", watched))

	d.loop = reconcile.New(reconcile.Options{
		Accumulator: d.acc,
		Events:      source.Events(),
		Interval:    d.cfg.PollInterval(),
		AptIdle:     d.cfg.AptIdleTimeout(),
		Plugins:     reconcile.PluginChain(d.cfg.Paths.PluginDir, d.launcher, d.logger),
		Logger:      d.logger,
	})

	if err := d.connectBus(); err != nil {
		return err
	}
	factory, err := tray.NewFactory(d.cfg.Tray.Backend, d.bus, d.loop.Dispatch, d.logger)
	if err != nil {
		return fmt.Errorf("init tray: %w", err)
	}
	d.factory = factory
	d.notifier = d.opts.Notifier
	if d.notifier == nil {
		d.notifier = notifications.NewService(d.cfg.Notifications, d.bus, d.loop.Dispatch, d.logger)
	}

	source.Start(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.loop.Run(ctx); err != nil {
			d.logger.Error("reconcile loop failed", logging.Error(err))
		}
	}()

	delay := d.cfg.StartupDelay()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		d.loop.Dispatch(func() { d.initApplets(ctx) })
	}()

	if d.cfg.Release.Enabled {
		d.release = release.New(d.launcher, d.settings, d.cfg.Release, nil, d.logger)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.release.Run(ctx, d.loop.Dispatch)
		}()
	}

	if d.cfg.UEvent.Enabled && !d.opts.DisableHardware {
		d.printers = uevent.New(uevent.Options{Launcher: d.launcher, Logger: d.logger})
		if err := d.printers.Start(ctx); err != nil {
			d.logger.Debug("uevent monitor not started", logging.Error(err))
		}
	}
	return nil
}

// connectBus opens the session bus when something needs it. A bus failure is
// fatal only when the indicator backend was requested explicitly.
func (d *Daemon) connectBus() error {
	if d.opts.Bus != nil {
		d.bus = d.opts.Bus
		return nil
	}
	needBus := d.cfg.Tray.Backend != tray.BackendHeadless || d.cfg.Notifications.Desktop
	if !needBus {
		return nil
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		if d.cfg.Tray.Backend == tray.BackendIndicator {
			return fmt.Errorf("connect session bus: %w", err)
		}
		logging.WarnWithContext(d.logger, "session bus unavailable", "session_bus_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run inside a desktop session or set tray.backend = \"headless\""),
			logging.String(logging.FieldImpact, "applets are headless and desktop notifications are off"),
		)
		return nil
	}
	d.bus = conn
	d.ownsBus = true
	return nil
}

// Stop cancels the loop and watchers and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.teardown()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start fails"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("update-notifier daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

func (d *Daemon) teardown() {
	if d.printers != nil {
		d.printers.Stop()
		d.printers = nil
	}
	d.mu.Lock()
	applets := d.applets
	d.applets = nil
	d.mu.Unlock()
	for _, applet := range applets {
		if err := applet.Destroy(); err != nil {
			d.logger.Debug("applet destroy failed", logging.String("applet", applet.Name()), logging.Error(err))
		}
	}
	if closer, ok := d.notifier.(io.Closer); ok {
		_ = closer.Close()
	}
	if d.source != nil {
		_ = d.source.Close()
		d.source = nil
	}
	if d.ownsBus && d.bus != nil {
		_ = d.bus.Close()
		d.bus = nil
		d.ownsBus = false
	}
}

// Close stops the daemon. The store is owned by the caller.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status. Loop state is collected on the
// loop goroutine.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	st := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.startedAt,
		LockFilePath: d.lockPath,
		StorePath:    d.cfg.StorePath(),
		LogPath:      d.opts.LogPath,
	}
	if !st.Running || d.loop == nil {
		return st, nil
	}
	if d.factory != nil {
		st.TrayBackend = d.factory.Backend()
	}
	if d.source != nil {
		st.Watched = d.source.Watched()
	}
	err := d.loop.Call(ctx, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		st.Admin = d.admin
		for _, applet := range d.applets {
			st.Applets = append(st.Applets, applet.Snapshot())
		}
	})
	if err != nil {
		return st, err
	}
	loopStatus, err := d.loop.Status(ctx)
	if err != nil {
		return st, err
	}
	st.Loop = loopStatus
	return st, nil
}

// CheckNow forces an update check and returns its result.
func (d *Daemon) CheckNow(ctx context.Context) (updates.Status, error) {
	if !d.running.Load() || d.loop == nil {
		return updates.Status{}, errors.New("daemon not running")
	}
	return d.loop.CheckNow(ctx)
}

// TestNotification sends a test notification over the configured transports.
func (d *Daemon) TestNotification(ctx context.Context) error {
	if !d.running.Load() || d.notifier == nil {
		return errors.New("daemon not running")
	}
	return d.notifier.TestNotification(ctx)
}
