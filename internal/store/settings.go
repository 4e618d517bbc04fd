package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Setting namespaces mirror the desktop schema ids the keys belong to.
const (
	NamespaceNotifier = "com.ubuntu.update-notifier"
	NamespaceManager  = "com.ubuntu.update-manager"
)

// Setting keys.
const (
	KeyNoShowNotifications       = "no-show-notifications"
	KeyShowApportCrashes         = "show-apport-crashes"
	KeyEndSystemUIDs             = "end-system-uids"
	KeyRegularAutoLaunchInterval = "regular-auto-launch-interval"
	KeyReleaseCheckTime          = "release-check-time"
	KeyLaunchTime                = "launch-time"
)

// ErrNotSet is returned when a key has never been written.
var ErrNotSet = errors.New("setting not set")

// Setting is one stored key/value pair.
type Setting struct {
	Namespace string
	Key       string
	Value     string
	UpdatedAt time.Time
}

// GetString returns the raw stored value for namespace/key.
func (s *Store) GetString(ctx context.Context, namespace, key string) (string, error) {
	var value string
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT value FROM settings WHERE namespace = ? AND key = ?", namespace, key,
		).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotSet
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

// SetString stores value for namespace/key, replacing any previous value.
func (s *Store) SetString(ctx context.Context, namespace, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.exec(ctx, `INSERT INTO settings (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, value, now)
	if err != nil {
		return fmt.Errorf("write setting %s/%s: %w", namespace, key, err)
	}
	return nil
}

// GetBool returns the stored boolean or ErrNotSet.
func (s *Store) GetBool(ctx context.Context, namespace, key string) (bool, error) {
	raw, err := s.GetString(ctx, namespace, key)
	if err != nil {
		return false, err
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse setting %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

// SetBool stores a boolean setting.
func (s *Store) SetBool(ctx context.Context, namespace, key string, value bool) error {
	return s.SetString(ctx, namespace, key, strconv.FormatBool(value))
}

// GetInt64 returns the stored integer or ErrNotSet.
func (s *Store) GetInt64(ctx context.Context, namespace, key string) (int64, error) {
	raw, err := s.GetString(ctx, namespace, key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse setting %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

// SetInt64 stores an integer setting.
func (s *Store) SetInt64(ctx context.Context, namespace, key string, value int64) error {
	return s.SetString(ctx, namespace, key, strconv.FormatInt(value, 10))
}

// ListSettings returns every stored setting ordered by namespace and key.
func (s *Store) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT namespace, key, value, updated_at FROM settings ORDER BY namespace, key")
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var item Setting
		var updated string
		if err := rows.Scan(&item.Namespace, &item.Key, &item.Value, &updated); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		item.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, item)
	}
	return out, rows.Err()
}
