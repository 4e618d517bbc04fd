package tray

import "errors"

// ErrUnavailable reports that the requested presentation backend cannot be
// reached, for example because no StatusNotifierWatcher owns its bus name.
var ErrUnavailable = errors.New("tray backend unavailable")

// MenuItem is one entry of an applet menu.
type MenuItem struct {
	Label     string
	Separator bool
	Toggle    bool
	Checked   bool
	Disabled  bool
	Activate  func()
}

// Dispatch runs fn on the goroutine that owns daemon state. Backends that
// receive user input on their own goroutines hand every callback to it.
type Dispatch func(fn func())

// Presenter is the capability set the checks need from a tray backend.
type Presenter interface {
	// Ensure creates the underlying tray object. It is safe to call more
	// than once.
	Ensure() error
	SetIcon(name string)
	SetVisible(visible bool)
	Visible() bool
	SetTooltip(text string)
	SetMenu(items []MenuItem)
	// SetSingleAction sets the callback run on primary activation.
	SetSingleAction(fn func())
	Destroy() error
}

func cloneMenu(items []MenuItem) []MenuItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]MenuItem, len(items))
	copy(out, items)
	return out
}
