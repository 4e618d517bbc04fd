package updates

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"updatenotifier/internal/logging"
	"updatenotifier/internal/tray"
)

type menuAction int

const (
	actionShowUpdates menuAction = iota
	actionInstallAll
	actionCheckUpdates
	actionStartPackageManager
)

// backend_helper.py argument, label and the desktop file that must exist for
// the entry to be offered.
var menuActions = [...]struct {
	arg     string
	label   string
	desktop string
}{
	actionShowUpdates:         {"show_updates", "Show updates", "update-manager.desktop"},
	actionInstallAll:          {"install_all_updates", "Install all updates", "synaptic.desktop"},
	actionCheckUpdates:        {"check_updates", "Check for updates", "synaptic.desktop"},
	actionStartPackageManager: {"start_packagemanager", "Start package manager", "synaptic.desktop"},
}

// RefreshMenu rebuilds the applet menu from the installed applications and
// the current notification setting.
func (h *Handler) RefreshMenu(ctx context.Context) {
	var items []tray.MenuItem
	for i, action := range menuActions {
		if !exists(filepath.Join(h.paths.ApplicationsDir, action.desktop)) {
			continue
		}
		which := menuAction(i)
		items = append(items, tray.MenuItem{
			Label:    action.label,
			Activate: func() { h.runAction(which) },
		})
	}
	items = append(items,
		tray.MenuItem{Separator: true},
		tray.MenuItem{
			Label:    "Show notifications",
			Toggle:   true,
			Checked:  !h.settings.NoShowNotifications(ctx),
			Activate: func() { h.toggleNotifications(ctx) },
		},
	)
	if props := h.launcher.Helpers().SoftwareProperties; props != "" && exists(props) {
		items = append(items, tray.MenuItem{
			Label:    "Preferences",
			Activate: func() { h.invoke(props) },
		})
	}
	h.applet.SetMenu(items)
}

// activate is the primary click action. It opens the update list, or the
// package manager while apt is running. A double click arrives as two
// activations, so activations within a second of the last are dropped.
func (h *Handler) activate() {
	now := h.now()
	if now.Sub(h.lastActivation) > time.Second {
		which := actionShowUpdates
		if h.aptRunning {
			which = actionStartPackageManager
		}
		h.runAction(which)
	}
	h.lastActivation = now
}

func (h *Handler) runAction(which menuAction) {
	h.invoke(h.launcher.Helpers().BackendHelper, menuActions[which].arg)
}

func (h *Handler) invoke(argv ...string) {
	if err := h.launcher.Invoke(false, argv...); err != nil {
		h.spawnFailed(argv[0], err, "the requested action did not start")
		return
	}
	h.logger.Debug("action started", logging.Strings("argv", argv))
}

func (h *Handler) toggleNotifications(ctx context.Context) {
	suppressed := !h.settings.NoShowNotifications(ctx)
	if err := h.settings.SetNoShowNotifications(ctx, suppressed); err != nil {
		logging.WarnWithContext(h.logger, "notification setting not saved", "setting_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
			logging.String(logging.FieldImpact, "the toggle reverts on the next start"),
		)
	}
	h.cancelNotification()
	if err := h.notifier.WithdrawUpdates(ctx); err != nil {
		h.logger.Debug("withdraw notification failed", logging.Error(err))
	}
	h.RefreshMenu(ctx)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
