package tray

import (
	"log/slog"

	"updatenotifier/internal/logging"
)

// Applet is a named tray entry. It owns its presenter exclusively and keeps
// a copy of the last state pushed to it so status queries never touch the
// backend.
type Applet struct {
	name      string
	presenter Presenter
	logger    *slog.Logger

	icon    string
	tooltip string
	visible bool
	menu    []MenuItem
	busy    bool
}

// Snapshot is the observable state of an applet.
type Snapshot struct {
	Name    string   `json:"name"`
	Icon    string   `json:"icon"`
	Tooltip string   `json:"tooltip"`
	Visible bool     `json:"visible"`
	Busy    bool     `json:"busy"`
	Menu    []string `json:"menu,omitempty"`
}

// NewApplet wraps presenter under name.
func NewApplet(name string, presenter Presenter, logger *slog.Logger) *Applet {
	return &Applet{
		name:      name,
		presenter: presenter,
		logger:    logging.NewComponentLogger(logger, "tray").With(logging.String("applet", name)),
	}
}

// Name returns the applet name.
func (a *Applet) Name() string {
	return a.name
}

// Ensure creates the backend object, logging rather than failing when the
// tray host refuses it.
func (a *Applet) Ensure() {
	if err := a.presenter.Ensure(); err != nil {
		logging.WarnWithContext(a.logger, "tray item not created", "tray_ensure_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check a StatusNotifier host is running in the session"),
			logging.String(logging.FieldImpact, "applet state is tracked but not displayed"),
		)
	}
}

func (a *Applet) SetIcon(name string) {
	if a.icon == name {
		return
	}
	a.icon = name
	a.presenter.SetIcon(name)
	a.logger.Debug("icon changed", logging.String("icon", name))
}

func (a *Applet) Icon() string {
	return a.icon
}

func (a *Applet) SetTooltip(text string) {
	if a.tooltip == text {
		return
	}
	a.tooltip = text
	a.presenter.SetTooltip(text)
}

func (a *Applet) Tooltip() string {
	return a.tooltip
}

func (a *Applet) SetVisible(visible bool) {
	if a.visible == visible {
		return
	}
	a.visible = visible
	a.presenter.SetVisible(visible)
	a.logger.Debug("visibility changed", logging.Bool("visible", visible))
}

func (a *Applet) Visible() bool {
	return a.visible
}

// SetBusy records whether the package manager is running. Busy applets keep
// their icon; the flag changes what primary activation does.
func (a *Applet) SetBusy(busy bool) {
	if a.busy == busy {
		return
	}
	a.busy = busy
	a.logger.Debug("busy changed", logging.Bool("busy", busy))
}

func (a *Applet) Busy() bool {
	return a.busy
}

func (a *Applet) SetMenu(items []MenuItem) {
	a.menu = cloneMenu(items)
	a.presenter.SetMenu(items)
}

func (a *Applet) SetSingleAction(fn func()) {
	a.presenter.SetSingleAction(fn)
}

// Destroy releases the backend object.
func (a *Applet) Destroy() error {
	return a.presenter.Destroy()
}

// Snapshot returns the mirrored state.
func (a *Applet) Snapshot() Snapshot {
	snap := Snapshot{
		Name:    a.name,
		Icon:    a.icon,
		Tooltip: a.tooltip,
		Visible: a.visible,
		Busy:    a.busy,
	}
	for _, item := range a.menu {
		if item.Separator {
			continue
		}
		snap.Menu = append(snap.Menu, item.Label)
	}
	return snap
}
