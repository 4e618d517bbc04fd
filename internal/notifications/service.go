package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"updatenotifier/internal/config"
	"updatenotifier/internal/logging"
)

// Tags identify a notification so a later one of the same kind replaces it.
const (
	TagUpdates = "updates"
	TagCrash   = "crash"
	TagAvahi   = "avahi"
	TagHooks   = "hooks"
	TagTest    = "test"
)

// Urgency mirrors the freedesktop notification urgency levels.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// ErrNotInteractive is returned when a notification asks a question but no
// transport can report the answer back.
var ErrNotInteractive = errors.New("no notification transport delivers actions")

// Action is a button on a notification.
type Action struct {
	Key   string
	Label string
	Run   func()
}

// Message is one notification handed to every transport.
type Message struct {
	Tag     string
	Title   string
	Body    string
	Icon    string
	Urgency Urgency
	Timeout time.Duration
	Actions []Action
	// Dismissed runs when the notification closes without an action.
	Dismissed func()
}

// Transport delivers messages to one destination.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Withdrawer is implemented by transports that can close a shown message.
type Withdrawer interface {
	Withdraw(ctx context.Context, tag string) error
}

// Interactive is implemented by transports that report action clicks and
// dismissals back to the sender.
type Interactive interface {
	DeliversActions() bool
}

// Service defines the notifications the checks emit.
type Service interface {
	NotifyUpdatesAvailable(ctx context.Context, body string, show func()) error
	WithdrawUpdates(ctx context.Context) error
	// NotifyCrashReport shows the crash notice. For system reports it asks
	// first: report runs when the user accepts and dismissed when the notice
	// closes without an answer. ErrNotInteractive means neither will run.
	NotifyCrashReport(ctx context.Context, system bool, report, dismissed func()) error
	NotifyAvahiDisabled(ctx context.Context) error
	NotifyHookInformation(ctx context.Context, name, description string, show func()) error
	TestNotification(ctx context.Context) error
}

const defaultTimeout = time.Minute

// NewService builds a service over the configured transports: the desktop
// notification daemon when enabled and conn is set, and ntfy when a topic is
// configured. With neither, a noop service is returned.
func NewService(cfg config.Notifications, conn *dbus.Conn, dispatch func(func()), logger *slog.Logger) Service {
	logger = logging.NewComponentLogger(logger, "notifications")
	var transports []Transport
	if cfg.Desktop && conn != nil {
		desktop, err := NewDesktop(conn, dispatch, logger)
		if err != nil {
			logging.WarnWithContext(logger, "desktop notifications unavailable", "desktop_notifications_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check a notification daemon is running in the session"),
				logging.String(logging.FieldImpact, "notifications are only sent to ntfy, if configured"),
			)
		} else {
			transports = append(transports, desktop)
		}
	}
	if topic := strings.TrimSpace(cfg.NtfyTopic); topic != "" {
		transports = append(transports, NewNtfy(topic, time.Duration(cfg.RequestTimeout)*time.Second))
	}
	if len(transports) == 0 {
		return noopService{}
	}
	return NewFanout(logger, transports...)
}

// Fanout sends every message to all transports.
type Fanout struct {
	transports []Transport
	logger     *slog.Logger
}

// NewFanout returns a Service over transports.
func NewFanout(logger *slog.Logger, transports ...Transport) *Fanout {
	return &Fanout{transports: transports, logger: logging.NewComponentLogger(logger, "notifications")}
}

// Close releases transports that hold resources.
func (f *Fanout) Close() error {
	var errs []error
	for _, t := range f.transports {
		if closer, ok := t.(interface{ Close() error }); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) NotifyUpdatesAvailable(ctx context.Context, body string, show func()) error {
	msg := Message{
		Tag:     TagUpdates,
		Title:   "Software updates available",
		Body:    body,
		Icon:    "software-update-available",
		Urgency: UrgencyNormal,
		Timeout: defaultTimeout,
	}
	if show != nil {
		msg.Actions = []Action{{Key: "default", Label: "Show updates", Run: show}}
	}
	return f.send(ctx, msg)
}

func (f *Fanout) WithdrawUpdates(ctx context.Context) error {
	var errs []error
	for _, t := range f.transports {
		if w, ok := t.(Withdrawer); ok {
			errs = append(errs, w.Withdraw(ctx, TagUpdates))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) NotifyCrashReport(ctx context.Context, system bool, report, dismissed func()) error {
	msg := Message{
		Tag:     TagCrash,
		Title:   "Crash report detected",
		Body:    "An application has crashed on your system (now or in the past).",
		Icon:    "apport",
		Urgency: UrgencyNormal,
		Timeout: defaultTimeout,
	}
	if system {
		msg.Title = "System program problem detected"
		msg.Body = "Do you want to report the problem now?"
	}
	if report == nil {
		return f.send(ctx, msg)
	}
	if !f.interactive() {
		if err := f.send(ctx, msg); err != nil {
			return err
		}
		return ErrNotInteractive
	}
	msg.Actions = []Action{{Key: "report", Label: "Report problem…", Run: report}}
	msg.Dismissed = dismissed
	return f.send(ctx, msg)
}

func (f *Fanout) interactive() bool {
	for _, t := range f.transports {
		if i, ok := t.(Interactive); ok && i.DeliversActions() {
			return true
		}
	}
	return false
}

func (f *Fanout) NotifyAvahiDisabled(ctx context.Context) error {
	return f.send(ctx, Message{
		Tag:   TagAvahi,
		Title: "Network service discovery disabled",
		Body: "Your current network has a .local domain, which is not recommended " +
			"and incompatible with the Avahi network service discovery. " +
			"The service has been disabled.",
		Icon:    "dialog-information",
		Urgency: UrgencyNormal,
		Timeout: defaultTimeout,
	})
}

func (f *Fanout) NotifyHookInformation(ctx context.Context, name, description string, show func()) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Information available"
	}
	msg := Message{
		Tag:     TagHooks,
		Title:   name,
		Body:    strings.TrimSpace(description),
		Icon:    "hook-notifier",
		Urgency: UrgencyNormal,
		Timeout: defaultTimeout,
	}
	if show != nil {
		msg.Actions = []Action{{Key: "default", Label: "Show", Run: show}}
	}
	return f.send(ctx, msg)
}

func (f *Fanout) TestNotification(ctx context.Context) error {
	return f.send(ctx, Message{
		Tag:     TagTest,
		Title:   "update-notifier test",
		Body:    "Notification system test",
		Icon:    "dialog-information",
		Urgency: UrgencyLow,
		Timeout: 10 * time.Second,
	})
}

func (f *Fanout) send(ctx context.Context, msg Message) error {
	var errs []error
	for _, t := range f.transports {
		if err := t.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	f.logger.Debug("notification sent",
		logging.String("tag", msg.Tag),
		logging.String("title", msg.Title),
		logging.Int("transports", len(f.transports)),
	)
	return nil
}

type noopService struct{}

func (noopService) NotifyUpdatesAvailable(context.Context, string, func()) error        { return nil }
func (noopService) WithdrawUpdates(context.Context) error                               { return nil }
func (noopService) NotifyCrashReport(_ context.Context, _ bool, report, _ func()) error {
	if report != nil {
		return ErrNotInteractive
	}
	return nil
}
func (noopService) NotifyAvahiDisabled(context.Context) error                           { return nil }
func (noopService) NotifyHookInformation(context.Context, string, string, func()) error { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
