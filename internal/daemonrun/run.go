package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"updatenotifier/internal/config"
	"updatenotifier/internal/daemon"
	"updatenotifier/internal/deps"
	"updatenotifier/internal/ipc"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/preflight"
	"updatenotifier/internal/settings"
	"updatenotifier/internal/store"
	"updatenotifier/internal/sysuser"
)

// Components accepted by the per-component debug switches.
var Components = []string{"hooks", "updates", "inotify", "uevent", "misc"}

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Debug lists components logged at debug level regardless of LogLevel.
	Debug []string
	// Force starts for system users and non-admin users.
	Force       bool
	ForcePkexec bool
	// StartupDelay overrides the configured delay when non-negative.
	StartupDelay time.Duration
	// Stdout mirrors log output to standard output.
	Stdout bool
}

// Run starts the update-notifier daemon and blocks until a signal or an IPC
// stop request. A system account without Force exits immediately with nil.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if opts.ForcePkexec {
		cfg.Workflow.ForcePkexec = true
	}
	if opts.StartupDelay >= 0 {
		cfg.Workflow.StartupDelay = int(opts.StartupDelay / time.Second)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("update-notifier-%s.log", runID))
	outputs := []string{logPath}
	if opts.Stdout {
		outputs = append([]string{"stdout"}, outputs...)
	}
	logger, err := logging.New(logging.Options{
		Level:           opts.LogLevel,
		Format:          cfg.Logging.Format,
		OutputPaths:     outputs,
		Development:     opts.Development,
		SessionID:       uuid.NewString(),
		ComponentLevels: componentLevels(cfg.Logging.ComponentOverrides, opts.Debug),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	st, err := store.Open(cfg.StorePath())
	if err != nil {
		logger.Error("open state store", logging.Error(err))
		return err
	}
	defer st.Close()

	users := sysuser.New()
	prefs := settings.New(st, cfg.Settings, logger)
	if end := prefs.EndSystemUID(signalCtx); users.IsSystemUser(end) && !opts.Force && !cfg.Workflow.ForceStart {
		logger.Info("system account; not starting",
			logging.String(logging.FieldEventType, "system_user_exit"),
			logging.Int("uid", users.UID()),
			logging.Int("end_system_uid", end),
		)
		return nil
	}

	logDependencySnapshot(logger, cfg)

	d, err := daemon.New(cfg, st, logger, daemon.Options{
		Force:   opts.Force,
		Users:   users,
		LogPath: logPath,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			logger.Info("another instance is running", logging.String(logging.FieldEventType, "already_running"))
		}
		return err
	}

	// The log pointer and old run logs belong to the instance holding the lock.
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update update-notifier.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, "update-notifier-*.log", cfg.Logging.RetentionDays, logPath)

	pidPath := filepath.Join(cfg.Paths.StateDir, "update-notifier.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, cancel, logger)
	if err != nil {
		logging.WarnWithContext(logger, "IPC server unavailable", "ipc_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
			logging.String(logging.FieldImpact, "status and check commands cannot reach this daemon"),
		)
	} else {
		defer ipcServer.Close()
		ipcServer.Serve()
	}

	<-signalCtx.Done()
	logger.Info("update-notifier daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// componentLevels merges the configured overrides with the debug switches.
func componentLevels(configured map[string]string, debug []string) map[string]string {
	levels := make(map[string]string, len(configured)+len(debug))
	for k, v := range configured {
		levels[k] = v
	}
	for _, component := range debug {
		levels[component] = "debug"
	}
	if len(levels) == 0 {
		return nil
	}
	return levels
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "update-notifier.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	statuses := preflight.CheckSystemDeps(cfg)
	attrs := []logging.Attr{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, s := range statuses {
		attrs = append(attrs, logging.Bool(s.Name, s.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	for _, missing := range deps.MissingRequired(statuses) {
		logging.WarnWithContext(logger, "required helper missing", "helper_missing",
			logging.String(logging.FieldHelper, missing.Command),
			logging.String("detail", missing.Detail),
			logging.String(logging.FieldErrorHint, "install the helper or fix its path in the config"),
			logging.String(logging.FieldImpact, missing.Description+" will fail"),
		)
	}
}
