package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"

	"updatenotifier/internal/config"
	"updatenotifier/internal/logging"
)

// Launcher starts the desktop helpers with the daemon's priority and
// privilege conventions.
type Launcher struct {
	runner      Runner
	helpers     config.Helpers
	forcePkexec bool
	logger      *slog.Logger
}

// New wraps runner. forcePkexec routes every UI launch through pkexec.
func New(runner Runner, helpers config.Helpers, forcePkexec bool, logger *slog.Logger) *Launcher {
	return &Launcher{
		runner:      runner,
		helpers:     helpers,
		forcePkexec: forcePkexec,
		logger:      logging.NewComponentLogger(logger, "launcher"),
	}
}

// Helpers returns the configured helper paths.
func (l *Launcher) Helpers() config.Helpers {
	return l.helpers
}

// LowPriority prefixes argv with nice and ionice -c3.
func (l *Launcher) LowPriority(argv ...string) []string {
	out := make([]string, 0, len(argv)+3)
	if l.helpers.Nice != "" {
		out = append(out, l.helpers.Nice)
	}
	if l.helpers.Ionice != "" {
		out = append(out, l.helpers.Ionice, "-c3")
	}
	return append(out, argv...)
}

// Run executes argv synchronously.
func (l *Launcher) Run(ctx context.Context, argv ...string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("empty command")
	}
	return l.runner.Run(ctx, argv[0], argv[1:]...)
}

// ErrWrappedNotStarted is returned by RunLowPriority when nice or ionice ran
// but could not execute the wrapped command.
var ErrWrappedNotStarted = errors.New("wrapped command could not be executed")

// Exit statuses nice and ionice use when the wrapped command is not found or
// not executable.
const (
	exitCannotExecute = 126
	exitNotFound      = 127
)

// RunLowPriority executes argv synchronously under nice/ionice. A wrapper
// that cannot execute argv is reported as a spawn failure.
func (l *Launcher) RunLowPriority(ctx context.Context, argv ...string) (Result, error) {
	wrapped := l.LowPriority(argv...)
	res, err := l.Run(ctx, wrapped...)
	if err != nil || len(wrapped) == len(argv) {
		return res, err
	}
	if res.ExitCode == exitCannotExecute || res.ExitCode == exitNotFound {
		msg := strings.TrimSpace(string(res.Stderr))
		return res, fmt.Errorf("%s: %w (exit %d): %s", argv[0], ErrWrappedNotStarted, res.ExitCode, msg)
	}
	return res, nil
}

// Start spawns argv without waiting.
func (l *Launcher) Start(argv ...string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	return l.runner.Start(argv[0], argv[1:]...)
}

// Invoke starts a desktop application, through pkexec when privileged is set
// or pkexec use is forced.
func (l *Launcher) Invoke(privileged bool, argv ...string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}
	if (privileged || l.forcePkexec) && l.helpers.Pkexec != "" {
		return l.runner.Start(l.helpers.Pkexec, argv...)
	}
	return l.runner.Start(argv[0], argv[1:]...)
}

// RunChain runs scripts one after another, each starting after the previous
// exits. Failures are logged and do not stop the chain.
func (l *Launcher) RunChain(ctx context.Context, scripts []string) {
	for _, script := range scripts {
		if ctx.Err() != nil {
			return
		}
		result, err := l.runner.Run(ctx, script)
		if err != nil {
			logging.WarnWithContext(l.logger, "plugin script failed to start", "plugin_spawn_failed",
				logging.String(logging.FieldHelper, script),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the script is executable"),
				logging.String(logging.FieldImpact, "cache-changed plugin skipped"),
			)
			continue
		}
		l.logger.Debug("plugin script finished",
			logging.String(logging.FieldHelper, script),
			logging.Int("exit_code", result.ExitCode),
		)
	}
}

// ListPlugins returns the executable regular files in dir in lexicographic order.
func ListPlugins(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var scripts []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if IsExecutable(path) {
			scripts = append(scripts, path)
		}
	}
	sort.Strings(scripts)
	return scripts, nil
}

// IsExecutable reports whether path is a regular file the caller may execute.
func IsExecutable(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}

// ProcessRunning reports whether any process under procRoot has a command
// line containing needle.
func ProcessRunning(procRoot, needle string) bool {
	if procRoot == "" {
		procRoot = "/proc"
	}
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() || !isNumeric(entry.Name()) {
			continue
		}
		cmdline, err := os.ReadFile(filepath.Join(procRoot, entry.Name(), "cmdline"))
		if err != nil || len(cmdline) == 0 {
			continue
		}
		if strings.Contains(strings.ReplaceAll(string(cmdline), "\x00", " "), needle) {
			return true
		}
	}
	return false
}

func isNumeric(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}
