package settings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"updatenotifier/internal/config"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/store"
)

// Backend is the persistence the settings read through.
type Backend interface {
	GetBool(ctx context.Context, namespace, key string) (bool, error)
	SetBool(ctx context.Context, namespace, key string, value bool) error
	GetInt64(ctx context.Context, namespace, key string) (int64, error)
	SetInt64(ctx context.Context, namespace, key string, value int64) error
}

// Settings resolves desktop settings from the backend, falling back to the
// configured defaults for keys that were never written or cannot be read.
type Settings struct {
	backend  Backend
	defaults config.Settings
	logger   *slog.Logger
}

// New builds a Settings view. A nil backend serves defaults only and rejects writes.
func New(backend Backend, defaults config.Settings, logger *slog.Logger) *Settings {
	return &Settings{backend: backend, defaults: defaults, logger: logging.NewComponentLogger(logger, "settings")}
}

// ErrReadOnly is returned by setters when no backend is configured.
var ErrReadOnly = errors.New("settings backend unavailable")

// NoShowNotifications reports whether update notifications are suppressed.
func (s *Settings) NoShowNotifications(ctx context.Context) bool {
	return s.boolValue(ctx, store.NamespaceNotifier, store.KeyNoShowNotifications, s.defaults.NoShowNotifications)
}

// SetNoShowNotifications persists the notification toggle.
func (s *Settings) SetNoShowNotifications(ctx context.Context, value bool) error {
	if s.backend == nil {
		return ErrReadOnly
	}
	return s.backend.SetBool(ctx, store.NamespaceNotifier, store.KeyNoShowNotifications, value)
}

// ShowApportCrashes reports whether crash reports should be surfaced.
func (s *Settings) ShowApportCrashes(ctx context.Context) bool {
	return s.boolValue(ctx, store.NamespaceNotifier, store.KeyShowApportCrashes, s.defaults.ShowApportCrashes)
}

// EndSystemUID returns the first uid considered a regular user.
func (s *Settings) EndSystemUID(ctx context.Context) int {
	value := s.intValue(ctx, store.NamespaceNotifier, store.KeyEndSystemUIDs, int64(s.defaults.EndSystemUIDs))
	if value <= 0 {
		return config.FallbackEndSystemUID
	}
	return int(value)
}

// AutoLaunchIntervalDays returns the regular auto-launch interval in days.
func (s *Settings) AutoLaunchIntervalDays(ctx context.Context) int {
	return int(s.intValue(ctx, store.NamespaceNotifier, store.KeyRegularAutoLaunchInterval, int64(s.defaults.RegularAutoLaunchInterval)))
}

// LaunchTime returns when the update manager was last launched, or the zero time.
func (s *Settings) LaunchTime(ctx context.Context) time.Time {
	return unixTime(s.intValue(ctx, store.NamespaceManager, store.KeyLaunchTime, s.defaults.LaunchTime))
}

// SetLaunchTime records an update manager launch.
func (s *Settings) SetLaunchTime(ctx context.Context, at time.Time) error {
	if s.backend == nil {
		return ErrReadOnly
	}
	return s.backend.SetInt64(ctx, store.NamespaceManager, store.KeyLaunchTime, at.Unix())
}

// ReleaseCheckTime returns when the release checker last ran, or the zero time.
func (s *Settings) ReleaseCheckTime(ctx context.Context) time.Time {
	return unixTime(s.intValue(ctx, store.NamespaceNotifier, store.KeyReleaseCheckTime, 0))
}

// SetReleaseCheckTime records a release checker launch.
func (s *Settings) SetReleaseCheckTime(ctx context.Context, at time.Time) error {
	if s.backend == nil {
		return ErrReadOnly
	}
	return s.backend.SetInt64(ctx, store.NamespaceNotifier, store.KeyReleaseCheckTime, at.Unix())
}

func (s *Settings) boolValue(ctx context.Context, namespace, key string, fallback bool) bool {
	if s.backend == nil {
		return fallback
	}
	value, err := s.backend.GetBool(ctx, namespace, key)
	if err != nil {
		s.readFailed(namespace, key, err)
		return fallback
	}
	return value
}

func (s *Settings) intValue(ctx context.Context, namespace, key string, fallback int64) int64 {
	if s.backend == nil {
		return fallback
	}
	value, err := s.backend.GetInt64(ctx, namespace, key)
	if err != nil {
		s.readFailed(namespace, key, err)
		return fallback
	}
	return value
}

func (s *Settings) readFailed(namespace, key string, err error) {
	if errors.Is(err, store.ErrNotSet) {
		return
	}
	logging.WarnWithContext(s.logger, "setting read failed; using default", "setting_read_failed",
		logging.String("namespace", namespace),
		logging.String("key", key),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect or delete state.db in the state directory"),
		logging.String(logging.FieldImpact, "configured default is used for this setting"),
	)
}

func unixTime(seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0)
}
