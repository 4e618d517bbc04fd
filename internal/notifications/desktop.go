package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"updatenotifier/internal/logging"
)

const (
	notificationsName      = "org.freedesktop.Notifications"
	notificationsPath      = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsInterface = "org.freedesktop.Notifications"
	appName                = "update-notifier"
)

// Desktop shows messages through the session notification daemon and routes
// action clicks back through dispatch.
type Desktop struct {
	conn     *dbus.Conn
	obj      dbus.BusObject
	dispatch func(func())
	logger   *slog.Logger
	signals  chan *dbus.Signal

	mu        sync.Mutex
	byTag     map[string]uint32
	actions   map[uint32]map[string]func()
	dismissed map[uint32]func()
	closed    bool
	done    chan struct{}
}

// NewDesktop subscribes to ActionInvoked and NotificationClosed on conn.
func NewDesktop(conn *dbus.Conn, dispatch func(func()), logger *slog.Logger) (*Desktop, error) {
	if conn == nil {
		return nil, fmt.Errorf("desktop notifications: no session bus")
	}
	d := &Desktop{
		conn:     conn,
		obj:      conn.Object(notificationsName, notificationsPath),
		dispatch: dispatch,
		logger:   logging.NewComponentLogger(logger, "notifications"),
		signals:  make(chan *dbus.Signal, 16),
		byTag:    make(map[string]uint32),
		actions:   make(map[uint32]map[string]func()),
		dismissed: make(map[uint32]func()),
		done:      make(chan struct{}),
	}
	for _, member := range []string{"ActionInvoked", "NotificationClosed"} {
		if err := conn.AddMatchSignal(
			dbus.WithMatchInterface(notificationsInterface),
			dbus.WithMatchMember(member),
		); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", member, err)
		}
	}
	conn.Signal(d.signals)
	go d.listen()
	return d, nil
}

// Send shows msg, replacing the previous notification with the same tag.
func (d *Desktop) Send(ctx context.Context, msg Message) error {
	d.mu.Lock()
	replaces := d.byTag[msg.Tag]
	d.mu.Unlock()

	actions := make([]string, 0, len(msg.Actions)*2)
	handlers := make(map[string]func(), len(msg.Actions))
	for _, action := range msg.Actions {
		actions = append(actions, action.Key, action.Label)
		handlers[action.Key] = action.Run
	}
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(msg.Urgency)),
	}
	timeout := int32(-1)
	if msg.Timeout > 0 {
		timeout = int32(msg.Timeout.Milliseconds())
	}

	var id uint32
	call := d.obj.CallWithContext(ctx, notificationsInterface+".Notify", 0,
		appName, replaces, msg.Icon, msg.Title, msg.Body, actions, hints, timeout)
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("desktop notify: %w", err)
	}

	d.mu.Lock()
	if replaces != 0 && replaces != id {
		delete(d.actions, replaces)
		delete(d.dismissed, replaces)
	}
	if msg.Tag != "" {
		d.byTag[msg.Tag] = id
	}
	if len(handlers) > 0 {
		d.actions[id] = handlers
	}
	if msg.Dismissed != nil {
		d.dismissed[id] = msg.Dismissed
	}
	d.mu.Unlock()
	return nil
}

// DeliversActions reports that action clicks come back through dispatch.
func (d *Desktop) DeliversActions() bool {
	return true
}

// Withdraw closes the notification last shown with tag, if any.
func (d *Desktop) Withdraw(ctx context.Context, tag string) error {
	d.mu.Lock()
	id, ok := d.byTag[tag]
	if ok {
		delete(d.byTag, tag)
		delete(d.actions, id)
		delete(d.dismissed, id)
	}
	d.mu.Unlock()
	if !ok {
		return nil
	}
	call := d.obj.CallWithContext(ctx, notificationsInterface+".CloseNotification", 0, id)
	if call.Err != nil {
		return fmt.Errorf("close notification %d: %w", id, call.Err)
	}
	return nil
}

// Close stops listening for notification signals.
func (d *Desktop) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.conn.RemoveSignal(d.signals)
	var firstErr error
	for _, member := range []string{"ActionInvoked", "NotificationClosed"} {
		if err := d.conn.RemoveMatchSignal(
			dbus.WithMatchInterface(notificationsInterface),
			dbus.WithMatchMember(member),
		); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	close(d.signals)
	<-d.done
	return firstErr
}

func (d *Desktop) listen() {
	defer close(d.done)
	for sig := range d.signals {
		d.handleSignal(sig)
	}
}

func (d *Desktop) handleSignal(sig *dbus.Signal) {
	if sig == nil || len(sig.Body) < 2 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}
	switch sig.Name {
	case notificationsInterface + ".ActionInvoked":
		key, _ := sig.Body[1].(string)
		d.mu.Lock()
		fn := d.actions[id][key]
		if fn != nil {
			delete(d.dismissed, id)
		}
		d.mu.Unlock()
		if fn == nil {
			return
		}
		d.logger.Debug("notification action invoked", logging.String("action", key))
		d.run(fn)
	case notificationsInterface + ".NotificationClosed":
		d.mu.Lock()
		dismissed := d.dismissed[id]
		delete(d.dismissed, id)
		delete(d.actions, id)
		for tag, shown := range d.byTag {
			if shown == id {
				delete(d.byTag, tag)
			}
		}
		d.mu.Unlock()
		if dismissed != nil {
			d.logger.Debug("notification dismissed without an action")
			d.run(dismissed)
		}
	}
}

func (d *Desktop) run(fn func()) {
	if d.dispatch != nil {
		d.dispatch(fn)
		return
	}
	fn()
}
