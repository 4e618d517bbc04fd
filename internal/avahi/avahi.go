// Package avahi tells the user when the avahi daemon disabled itself because
// the network uses a .local unicast domain.
package avahi

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"updatenotifier/internal/logging"
	"updatenotifier/internal/notifications"
)

// Notifier checks the avahi marker file.
type Notifier struct {
	marker   string
	notifier notifications.Service
	logger   *slog.Logger
}

// New returns a Notifier watching marker.
func New(marker string, notifier notifications.Service, logger *slog.Logger) *Notifier {
	return &Notifier{marker: marker, notifier: notifier, logger: logging.NewComponentLogger(logger, "avahi")}
}

// Check shows the notification when the marker exists. It reports whether
// the marker was found.
func (n *Notifier) Check(ctx context.Context) bool {
	if _, err := os.Stat(n.marker); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			n.logger.Debug("avahi marker unreadable", logging.String(logging.FieldPath, n.marker), logging.Error(err))
		}
		return false
	}
	n.logger.Info("service discovery disabled for unicast .local",
		logging.String(logging.FieldEventType, "avahi_disabled"),
		logging.String(logging.FieldPath, n.marker),
	)
	if err := n.notifier.NotifyAvahiDisabled(ctx); err != nil {
		logging.WarnWithContext(n.logger, "avahi notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the notification daemon or ntfy topic"),
			logging.String(logging.FieldImpact, "the user is not told that service discovery is off"),
		)
	}
	return true
}
