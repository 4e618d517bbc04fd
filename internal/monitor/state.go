package monitor

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"updatenotifier/internal/config"
	"updatenotifier/internal/logging"
)

// PendingState records what happened since the last reconciliation tick.
// Event handling only ever sets fields; the tick is the only code that clears them.
type PendingState struct {
	DpkgRan       bool
	AptRunning    bool
	HookPending   bool
	CrashPending  bool
	AvahiPending  bool
	LastAptAction time.Time
}

// Rules classifies changed paths into PendingState flags.
type Rules struct {
	AptPrefixes []string
	DpkgStatus  string
	RunStamps   []string
	HooksDir    string
	CrashDir    string
	AvahiMarker string
}

// NewRules derives the classification rules from the configured paths.
func NewRules(paths config.Paths) Rules {
	var stamps []string
	for _, stamp := range []string{paths.DpkgRunStamp, paths.UpdateSuccessStamp} {
		if stamp != "" {
			stamps = append(stamps, stamp)
		}
	}
	var prefixes []string
	for _, prefix := range []string{paths.AptLibPrefix, paths.AptCachePrefix} {
		if prefix != "" {
			prefixes = append(prefixes, filepath.Clean(prefix))
		}
	}
	return Rules{
		AptPrefixes: prefixes,
		DpkgStatus:  paths.DpkgStatus,
		RunStamps:   stamps,
		HooksDir:    cleanDir(paths.HooksDir),
		CrashDir:    cleanDir(paths.CrashDir),
		AvahiMarker: paths.AvahiMarker,
	}
}

// Accumulator applies Rules to incoming path changes.
type Accumulator struct {
	rules  Rules
	state  PendingState
	logger *slog.Logger
}

// NewAccumulator returns an Accumulator with an empty PendingState.
func NewAccumulator(rules Rules, logger *slog.Logger) *Accumulator {
	return &Accumulator{rules: rules, logger: logging.NewComponentLogger(logger, "inotify")}
}

// State exposes the pending flags for the tick to read and clear.
func (a *Accumulator) State() *PendingState {
	return &a.state
}

// OnPathChanged records a change to path. The rules are not exclusive: one
// path may set several flags.
func (a *Accumulator) OnPathChanged(path string, kind Kind, now time.Time) {
	// Lock files only report acquisition, never release.
	if strings.HasSuffix(path, "lock") {
		return
	}

	r := a.rules
	logger := a.logger.With(logging.String(logging.FieldPath, path), logging.String("kind", kind.String()))

	if r.isApt(path) {
		a.state.AptRunning = true
		a.state.LastAptAction = now
		logger.Debug("apt activity")
	}
	for _, stamp := range r.RunStamps {
		if strings.Contains(path, stamp) {
			a.state.DpkgRan = true
			logger.Debug("dpkg run stamp written")
			break
		}
	}
	if under(path, r.HooksDir) {
		a.state.HookPending = true
		logger.Debug("hook changed")
	}
	if under(path, r.CrashDir) {
		a.state.CrashPending = true
		logger.Debug("crash report changed")
	}
	if r.AvahiMarker != "" && path == r.AvahiMarker {
		a.state.AvahiPending = true
		logger.Debug("avahi marker changed")
	}
}

func (r Rules) isApt(path string) bool {
	if r.DpkgStatus != "" && path == r.DpkgStatus {
		return true
	}
	for _, prefix := range r.AptPrefixes {
		if strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func under(path, dir string) bool {
	if dir == "" {
		return false
	}
	return path == dir || strings.HasPrefix(path, dir+"/")
}

func cleanDir(dir string) string {
	if dir == "" {
		return ""
	}
	return filepath.Clean(dir)
}
