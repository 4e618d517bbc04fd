package updates

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"updatenotifier/internal/config"
	"updatenotifier/internal/launcher"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/notifications"
	"updatenotifier/internal/settings"
	"updatenotifier/internal/tray"
)

// AfterFunc runs fn on the daemon loop after d. The returned function cancels
// the callback if it has not run yet.
type AfterFunc func(d time.Duration, fn func()) (stop func())

// Deps are the collaborators of the update check.
type Deps struct {
	Launcher  *launcher.Launcher
	Settings  *settings.Settings
	Notifier  notifications.Service
	Applet    *tray.Applet
	Paths     config.Paths
	Workflow  config.Workflow
	AfterFunc AfterFunc
	Now       func() time.Time
	Logger    *slog.Logger
}

// Status is the observable state of the update check.
type Status struct {
	State         string      `json:"state"`
	Result        CheckResult `json:"result"`
	Message       string      `json:"message,omitempty"`
	AptRunning    bool        `json:"apt_running"`
	NagScheduled  bool        `json:"nag_scheduled"`
	LastCheck     time.Time   `json:"last_check"`
	LastAutoStart time.Time   `json:"last_auto_launch"`
}

// Handler owns the update applet and runs the update-availability check.
// All methods must be called from the daemon loop goroutine.
type Handler struct {
	launcher  *launcher.Launcher
	settings  *settings.Settings
	notifier  notifications.Service
	applet    *tray.Applet
	paths     config.Paths
	workflow  config.Workflow
	afterFunc AfterFunc
	now       func() time.Time
	logger    *slog.Logger

	state          State
	result         CheckResult
	message        string
	aptRunning     bool
	lastCheck      time.Time
	lastAutoStart  time.Time
	lastActivation time.Time
	stopNag        func()
	stopNotify     func()
}

// New builds the handler. The applet is not touched until Init.
func New(deps Deps) *Handler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	after := deps.AfterFunc
	if after == nil {
		after = func(d time.Duration, fn func()) func() {
			t := time.AfterFunc(d, fn)
			return func() { t.Stop() }
		}
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewFanout(deps.Logger)
	}
	return &Handler{
		launcher:  deps.Launcher,
		settings:  deps.Settings,
		notifier:  notifier,
		applet:    deps.Applet,
		paths:     deps.Paths,
		workflow:  deps.Workflow,
		afterFunc: after,
		now:       now,
		logger:    logging.NewComponentLogger(deps.Logger, "updates"),
	}
}

// Init creates the applet, installs its menu and runs the first check.
func (h *Handler) Init(ctx context.Context) {
	h.applet.Ensure()
	h.applet.SetSingleAction(h.activate)
	h.RefreshMenu(ctx)
	h.Check(ctx)
}

// State returns the state of the last check.
func (h *Handler) State() State {
	return h.state
}

// Result returns the counts of the last successful check.
func (h *Handler) Result() CheckResult {
	return h.result
}

// Status returns a snapshot for status queries.
func (h *Handler) Status() Status {
	return Status{
		State:         h.state.String(),
		Result:        h.result,
		Message:       h.message,
		AptRunning:    h.aptRunning,
		NagScheduled:  h.stopNag != nil,
		LastCheck:     h.lastCheck,
		LastAutoStart: h.lastAutoStart,
	}
}

// SetAptRunning records whether a package manager is active. The applet is
// marked busy and pending update notifications wait until it finishes.
func (h *Handler) SetAptRunning(running bool) {
	if h.aptRunning != running {
		h.logger.Debug("apt running changed", logging.Bool("running", running))
	}
	h.aptRunning = running
	h.applet.SetBusy(running)
}

// AptRunning reports the last value passed to SetAptRunning.
func (h *Handler) AptRunning() bool {
	return h.aptRunning
}

// CancelOutdatedNag drops a scheduled outdated-information warning.
func (h *Handler) CancelOutdatedNag() {
	if h.stopNag == nil {
		return
	}
	h.stopNag()
	h.stopNag = nil
	h.logger.Debug("outdated nag cancelled")
}

// Check runs the checker and updates the applet. It returns the new state.
func (h *Handler) Check(ctx context.Context) State {
	helpers := h.launcher.Helpers()
	res, err := h.launcher.RunLowPriority(ctx, helpers.AptCheck)
	if err != nil {
		h.spawnFailed(helpers.AptCheck, err, "update state unchanged until the next check")
		return h.state
	}
	h.lastCheck = h.now()

	out := string(res.Stderr)
	if strings.TrimSpace(out) == "" {
		out = string(res.Stdout)
	}
	// A live session links the checker to /bin/true.
	if res.ExitCode == 0 && out == "" && isSymlink(helpers.AptCheck) {
		h.logger.Debug("checker is a symlink with no output; skipping")
		return h.state
	}

	parsed, err := ParseCheckerOutput(out)
	if err != nil {
		h.result = CheckResult{}
		var checkerErr *CheckerError
		switch {
		case errors.As(err, &checkerErr):
			h.showError(ErrorText(checkerErr.Message))
		default:
			h.showError(textCheckFailed)
		}
		h.logger.Info("update check failed", logging.Error(err), logging.String(logging.FieldEventType, "update_check_error"))
		return h.state
	}

	if _, err := os.Stat(h.paths.RebootRequired); err == nil {
		parsed.RebootPending = true
		h.logger.Debug("reboot pending")
	}
	h.result = parsed
	h.message = ""
	wasShowingUpdates := h.state == StateVisibleNormal || h.state == StateVisibleUrgent
	h.logger.Debug("checker returned",
		logging.Uint64("upgrades", uint64(parsed.NumUpgrades)),
		logging.Uint64("security", uint64(parsed.NumSecurity)),
		logging.Bool("reboot_pending", parsed.RebootPending),
	)

	if parsed.NumUpgrades == 0 && !parsed.RebootPending {
		h.hide(ctx)
		return h.state
	}

	h.state = StateVisibleNormal
	icon := IconAvailable
	if parsed.NumSecurity > 0 {
		h.state = StateVisibleUrgent
		icon = IconUrgent
	}
	h.applet.SetIcon(icon)
	h.applet.SetTooltip(TooltipText(parsed.NumUpgrades))

	if h.shouldAutoLaunch(ctx, parsed) {
		h.autoLaunch(ctx)
	}

	// Visible for the outdated nag or an error does not count as shown.
	if wasShowingUpdates && h.applet.Visible() {
		return h.state
	}
	h.applet.SetVisible(true)
	h.logger.Info("updates available",
		logging.String(logging.FieldEventType, "updates_available"),
		logging.Uint64("upgrades", uint64(parsed.NumUpgrades)),
		logging.Uint64("security", uint64(parsed.NumSecurity)),
	)
	if !h.settings.NoShowNotifications(ctx) {
		h.scheduleNotification(ctx)
	}
	return h.state
}

func (h *Handler) hide(ctx context.Context) {
	h.state = StateHidden
	if h.stampOlderThan(time.Duration(h.workflow.OutdatedAgeDays) * 24 * time.Hour) {
		h.scheduleNag()
	}
	h.applet.SetVisible(false)
	h.cancelNotification()
	if err := h.notifier.WithdrawUpdates(ctx); err != nil {
		h.logger.Debug("withdraw notification failed", logging.Error(err))
	}
}

func (h *Handler) showError(text string) {
	h.state = StateError
	h.message = text
	h.applet.SetTooltip(text)
	h.applet.SetIcon(IconError)
	h.applet.SetVisible(true)
}

func (h *Handler) scheduleNag() {
	h.CancelOutdatedNag()
	wait := time.Duration(h.workflow.OutdatedWait) * time.Second
	h.stopNag = h.afterFunc(wait, h.outdatedNag)
	h.logger.Debug("outdated nag scheduled", logging.Duration("wait", wait))
}

func (h *Handler) outdatedNag() {
	h.stopNag = nil
	if !h.stampOlderThan(time.Duration(h.workflow.OutdatedAgeDays) * 24 * time.Hour) {
		return
	}
	h.applet.SetVisible(true)
	h.applet.SetIcon(IconOutdated)
	h.applet.SetTooltip(textOutdated)
	logging.WarnWithContext(h.logger, "package information is outdated", "update_info_outdated",
		logging.String(logging.FieldPath, h.paths.UpdateSuccessStamp),
		logging.String(logging.FieldErrorHint, "run apt update and look for failing repositories"),
		logging.String(logging.FieldImpact, "available updates may not be detected"),
	)
}

func (h *Handler) scheduleNotification(ctx context.Context) {
	h.cancelNotification()
	delay := time.Duration(h.workflow.NotificationDelay) * time.Second
	var fire func()
	fire = func() {
		h.stopNotify = nil
		if h.aptRunning {
			// retry once the package manager has finished
			h.stopNotify = h.afterFunc(delay, fire)
			return
		}
		if !h.applet.Visible() {
			return
		}
		body := NotificationText(h.result.NumUpgrades)
		if err := h.notifier.NotifyUpdatesAvailable(ctx, body, func() { h.runAction(actionShowUpdates) }); err != nil {
			logging.WarnWithContext(h.logger, "update notification failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the notification daemon or ntfy topic"),
				logging.String(logging.FieldImpact, "the tray icon still shows available updates"),
			)
		}
	}
	h.stopNotify = h.afterFunc(delay, fire)
}

func (h *Handler) cancelNotification() {
	if h.stopNotify != nil {
		h.stopNotify()
		h.stopNotify = nil
	}
}

func (h *Handler) autoLaunch(ctx context.Context) {
	helpers := h.launcher.Helpers()
	if err := h.launcher.Start(h.launcher.LowPriority(helpers.UpdateManager, "--no-update", "--no-focus-on-map")...); err != nil {
		h.spawnFailed(helpers.UpdateManager, err, "updates are not offered automatically this time")
		return
	}
	now := h.now()
	h.lastAutoStart = now
	if err := h.settings.SetLaunchTime(ctx, now); err != nil {
		h.logger.Debug("launch time not recorded", logging.Error(err))
	}
	h.logger.Info("update manager auto-launched", logging.String(logging.FieldEventType, "auto_launch"))
}

func (h *Handler) stampOlderThan(age time.Duration) bool {
	info, err := os.Stat(h.paths.UpdateSuccessStamp)
	if err != nil {
		return false
	}
	return h.now().Sub(info.ModTime()) > age
}

func (h *Handler) spawnFailed(helper string, err error, impact string) {
	logging.WarnWithContext(h.logger, "helper failed to start", "helper_spawn_failed",
		logging.String(logging.FieldHelper, helper),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the helper is installed and executable"),
		logging.String(logging.FieldImpact, impact),
	)
}

func isSymlink(path string) bool {
	info, err := os.Lstat(filepath.Clean(path))
	return err == nil && info.Mode()&os.ModeSymlink != 0
}
