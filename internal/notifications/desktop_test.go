package notifications

import (
	"testing"

	"github.com/godbus/dbus/v5"

	"updatenotifier/internal/logging"
)

func newSignalOnlyDesktop(dispatch func(func())) *Desktop {
	return &Desktop{
		dispatch:  dispatch,
		logger:    logging.NewNop(),
		byTag:     map[string]uint32{TagCrash: 7},
		actions:   make(map[uint32]map[string]func()),
		dismissed: make(map[uint32]func()),
	}
}

func TestDesktopActionInvokedDispatches(t *testing.T) {
	var queued []func()
	d := newSignalOnlyDesktop(func(fn func()) { queued = append(queued, fn) })
	reported := 0
	d.actions[7] = map[string]func(){"report": func() { reported++ }}

	d.handleSignal(&dbus.Signal{
		Name: notificationsInterface + ".ActionInvoked",
		Body: []any{uint32(7), "other"},
	})
	if len(queued) != 0 {
		t.Fatal("unknown action key must be ignored")
	}

	d.handleSignal(&dbus.Signal{
		Name: notificationsInterface + ".ActionInvoked",
		Body: []any{uint32(7), "report"},
	})
	if len(queued) != 1 {
		t.Fatalf("expected one dispatched action, got %d", len(queued))
	}
	queued[0]()
	if reported != 1 {
		t.Fatalf("expected report action to run once, got %d", reported)
	}
}

func TestDesktopNotificationClosedForgetsState(t *testing.T) {
	d := newSignalOnlyDesktop(nil)
	d.actions[7] = map[string]func(){"report": func() {}}

	d.handleSignal(&dbus.Signal{
		Name: notificationsInterface + ".NotificationClosed",
		Body: []any{uint32(7), uint32(2)},
	})
	if _, ok := d.actions[7]; ok {
		t.Fatal("expected actions dropped for closed notification")
	}
	if _, ok := d.byTag[TagCrash]; ok {
		t.Fatal("expected tag mapping dropped for closed notification")
	}

	d.handleSignal(&dbus.Signal{Name: notificationsInterface + ".ActionInvoked", Body: []any{"bad"}})
}

func TestDesktopDismissedRunsOnlyWithoutAction(t *testing.T) {
	var queued []func()
	d := newSignalOnlyDesktop(func(fn func()) { queued = append(queued, fn) })
	dismissed := 0
	d.actions[7] = map[string]func(){"report": func() {}}
	d.dismissed[7] = func() { dismissed++ }

	d.handleSignal(&dbus.Signal{
		Name: notificationsInterface + ".NotificationClosed",
		Body: []any{uint32(7), uint32(2)},
	})
	if len(queued) != 1 {
		t.Fatalf("expected dismiss handler dispatched, got %d", len(queued))
	}
	queued[0]()
	if dismissed != 1 {
		t.Fatalf("expected dismiss handler to run once, got %d", dismissed)
	}

	queued = nil
	d.actions[8] = map[string]func(){"report": func() {}}
	d.dismissed[8] = func() { dismissed++ }
	d.handleSignal(&dbus.Signal{
		Name: notificationsInterface + ".ActionInvoked",
		Body: []any{uint32(8), "report"},
	})
	d.handleSignal(&dbus.Signal{
		Name: notificationsInterface + ".NotificationClosed",
		Body: []any{uint32(8), uint32(2)},
	})
	if len(queued) != 1 {
		t.Fatalf("expected only the action dispatched, got %d", len(queued))
	}
	if _, ok := d.dismissed[8]; ok {
		t.Fatal("expected dismiss handler dropped after the action")
	}
}
