package tray

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"

	"updatenotifier/internal/logging"
)

func TestBuildLayoutFlatMenu(t *testing.T) {
	items := []MenuItem{
		{Label: "Show updates"},
		{Separator: true},
		{Label: "Show notifications", Toggle: true, Checked: true},
		{Label: "Preferences", Disabled: true},
	}
	layout := buildLayout(items)
	if layout.ID != 0 {
		t.Fatalf("expected root id 0, got %d", layout.ID)
	}
	if got := layout.Properties["children-display"].Value(); got != "submenu" {
		t.Fatalf("expected submenu root, got %v", got)
	}
	if len(layout.Children) != len(items) {
		t.Fatalf("expected %d children, got %d", len(items), len(layout.Children))
	}

	child := func(i int) menuLayout {
		node, ok := layout.Children[i].Value().(menuLayout)
		if !ok {
			t.Fatalf("child %d has type %T", i, layout.Children[i].Value())
		}
		return node
	}
	if node := child(0); node.ID != 1 || node.Properties["label"].Value() != "Show updates" {
		t.Fatalf("unexpected first child %+v", node)
	}
	if node := child(1); node.Properties["type"].Value() != "separator" {
		t.Fatalf("expected separator, got %+v", node.Properties)
	}
	toggle := child(2)
	if toggle.Properties["toggle-type"].Value() != "checkmark" || toggle.Properties["toggle-state"].Value() != int32(1) {
		t.Fatalf("unexpected toggle properties %+v", toggle.Properties)
	}
	if child(3).Properties["enabled"].Value() != false {
		t.Fatal("expected disabled entry")
	}
}

func TestMenuEventDispatchesActivation(t *testing.T) {
	var queued []func()
	menu := newDBusMenu(nil, "/test/Menu", func(fn func()) { queued = append(queued, fn) })

	clicked := 0
	menu.setItems([]MenuItem{
		{Label: "Check for updates", Activate: func() { clicked++ }},
		{Separator: true},
	})

	if err := menu.Event(1, "hovered", dbus.Variant{}, 0); err != nil {
		t.Fatalf("hovered: %v", err)
	}
	if len(queued) != 0 {
		t.Fatal("hover must not activate")
	}
	if err := menu.Event(1, "clicked", dbus.Variant{}, 0); err != nil {
		t.Fatalf("clicked: %v", err)
	}
	if clicked != 0 {
		t.Fatal("activation must go through dispatch, not run inline")
	}
	if len(queued) != 1 {
		t.Fatalf("expected one dispatched callback, got %d", len(queued))
	}
	queued[0]()
	if clicked != 1 {
		t.Fatalf("expected callback to run once, got %d", clicked)
	}

	missing, err := menu.EventGroup([]menuEvent{{ID: 2, EventID: "clicked"}, {ID: 9, EventID: "clicked"}})
	if err != nil {
		t.Fatalf("event group: %v", err)
	}
	if len(missing) != 1 || missing[0] != 9 {
		t.Fatalf("expected id 9 reported missing, got %v", missing)
	}
}

func TestMenuRevisionAdvances(t *testing.T) {
	menu := newDBusMenu(nil, "/test/Menu", nil)
	rev1, _, _ := menu.GetLayout(0, -1, nil)
	menu.setItems([]MenuItem{{Label: "a"}})
	rev2, layout, _ := menu.GetLayout(0, -1, nil)
	if rev2 <= rev1 {
		t.Fatalf("expected revision to advance, got %d then %d", rev1, rev2)
	}
	if len(layout.Children) != 1 {
		t.Fatalf("expected one child, got %d", len(layout.Children))
	}
	if _, _, err := menu.GetLayout(5, -1, nil); err == nil {
		t.Fatal("expected error for unknown parent")
	}
}

func TestHeadlessTriggerAndActivate(t *testing.T) {
	h := NewHeadless("update", logging.NewNop())
	if h.Activate() {
		t.Fatal("expected no single action yet")
	}
	ran := ""
	h.SetSingleAction(func() { ran = "single" })
	h.SetMenu([]MenuItem{
		{Label: "Mark as read", Activate: func() { ran = "mark" }},
		{Label: "Off", Disabled: true, Activate: func() { ran = "off" }},
	})
	if !h.Activate() || ran != "single" {
		t.Fatalf("expected single action to run, got %q", ran)
	}
	if !h.Trigger("Mark as read") || ran != "mark" {
		t.Fatalf("expected menu action to run, got %q", ran)
	}
	if h.Trigger("Off") {
		t.Fatal("disabled entry must not trigger")
	}
	if h.Trigger("missing") {
		t.Fatal("unknown entry must not trigger")
	}
}

func TestAppletMirrorsState(t *testing.T) {
	h := NewHeadless("hook", logging.NewNop())
	applet := NewApplet("hook", h, logging.NewNop())
	applet.Ensure()
	if !h.Ensured() {
		t.Fatal("expected presenter ensured")
	}
	applet.SetIcon("hook-notifier")
	applet.SetTooltip("Information available")
	applet.SetVisible(true)
	applet.SetBusy(true)
	applet.SetMenu([]MenuItem{{Label: "Run this action now"}, {Separator: true}, {Label: "Mark as read"}})

	snap := applet.Snapshot()
	if snap.Name != "hook" || snap.Icon != "hook-notifier" || !snap.Visible || !snap.Busy {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.Menu) != 2 || snap.Menu[1] != "Mark as read" {
		t.Fatalf("expected separators dropped from menu labels, got %v", snap.Menu)
	}
	if h.Icon() != "hook-notifier" || h.Tooltip() != "Information available" || !h.Visible() {
		t.Fatal("expected presenter to receive state")
	}

	if err := applet.Destroy(); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if h.Ensured() || h.Visible() {
		t.Fatal("expected destroyed presenter hidden")
	}
}

func TestFactoryBackendSelection(t *testing.T) {
	f, err := NewFactory(BackendAuto, nil, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("auto without bus: %v", err)
	}
	if f.Backend() != BackendHeadless {
		t.Fatalf("expected headless fallback, got %s", f.Backend())
	}
	if _, ok := f.New("update").(*Headless); !ok {
		t.Fatal("expected headless presenter")
	}

	if _, err := NewFactory(BackendIndicator, nil, nil, logging.NewNop()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := NewFactory("gtk", nil, nil, logging.NewNop()); err == nil {
		t.Fatal("expected unknown backend error")
	}
}

func TestIndicatorWithoutBus(t *testing.T) {
	ind := NewIndicator(nil, "crash-report", nil, logging.NewNop())
	if ind.path != "/org/ayatana/NotificationItem/crash_report" {
		t.Fatalf("unexpected object path %s", ind.path)
	}
	ind.SetIcon("apport")
	ind.SetVisible(true)
	if !ind.Visible() {
		t.Fatal("expected state kept before export")
	}
	if err := ind.Ensure(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := ind.Destroy(); err != nil {
		t.Fatalf("destroy of unexported item: %v", err)
	}
}
