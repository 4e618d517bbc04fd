package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"updatenotifier/internal/logging"
)

// Result captures a completed helper run. A non-zero ExitCode is not an error.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes helper programs. Run and Start return an error only when the
// program could not be spawned.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
	Start(name string, args ...string) error
}

// ExecRunner runs helpers as child processes.
type ExecRunner struct {
	logger *slog.Logger
}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	return &ExecRunner{logger: logging.NewComponentLogger(logger, "launcher")}
}

// Run executes name synchronously and captures its output and exit status.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return result, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	return result, fmt.Errorf("run %s: %w", name, err)
}

// Start spawns name without waiting for it. The child is reaped in the background.
func (r *ExecRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...) //nolint:gosec
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	r.logger.Debug("helper started",
		logging.String(logging.FieldHelper, name),
		logging.Strings("args", args),
		logging.Int("pid", cmd.Process.Pid),
	)
	go func() {
		if err := cmd.Wait(); err != nil {
			r.logger.Debug("helper exited",
				logging.String(logging.FieldHelper, name),
				logging.Error(err),
			)
		}
	}()
	return nil
}
