// Package crash looks for pending crash reports and starts the report UI.
package crash

import (
	"context"
	"errors"
	"log/slog"

	"updatenotifier/internal/launcher"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/notifications"
	"updatenotifier/internal/settings"
	"updatenotifier/internal/tray"
)

// Icon is the crash applet icon.
const Icon = "apport"

// Outcome is the result of one crash check.
type Outcome int

const (
	// OutcomeSkipped means the report UI is missing or crash reporting is off.
	OutcomeSkipped Outcome = iota
	// OutcomeNone means no reports were found.
	OutcomeNone
	// OutcomeUserReports means user reports were found and the UI started.
	OutcomeUserReports
	// OutcomeSystemReports means system reports were found. The user is asked
	// before the privileged UI starts; user reports open the UI directly.
	OutcomeSystemReports
	// OutcomeFailed means the report helper could not be run.
	OutcomeFailed
)

var outcomeNames = map[Outcome]string{
	OutcomeSkipped:       "skipped",
	OutcomeNone:          "none",
	OutcomeUserReports:   "user_reports",
	OutcomeSystemReports: "system_reports",
	OutcomeFailed:        "failed",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Deps are the collaborators of the crash check.
type Deps struct {
	Launcher *launcher.Launcher
	Settings *settings.Settings
	Notifier notifications.Service
	Applet   *tray.Applet
	// IsAdmin reports whether system-wide reports should be considered.
	IsAdmin func() bool
	Logger  *slog.Logger
}

// Handler runs the crash check. Methods must be called from the daemon loop.
type Handler struct {
	launcher *launcher.Launcher
	settings *settings.Settings
	notifier notifications.Service
	applet   *tray.Applet
	isAdmin  func() bool
	logger   *slog.Logger

	last Outcome
}

// New builds the crash handler.
func New(deps Deps) *Handler {
	isAdmin := deps.IsAdmin
	if isAdmin == nil {
		isAdmin = func() bool { return false }
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewFanout(deps.Logger)
	}
	return &Handler{
		launcher: deps.Launcher,
		settings: deps.Settings,
		notifier: notifier,
		applet:   deps.Applet,
		isAdmin:  isAdmin,
		logger:   logging.NewComponentLogger(deps.Logger, "crash"),
	}
}

// Init creates the hidden crash applet.
func (h *Handler) Init() {
	h.applet.Ensure()
	h.applet.SetIcon(Icon)
	h.applet.SetTooltip("Crash report detected")
	h.applet.SetVisible(false)
}

// Last returns the outcome of the most recent check.
func (h *Handler) Last() Outcome {
	return h.last
}

// Check asks apport-checkreports for pending reports. User reports open the
// report UI directly. System reports need pkexec, so the user is asked
// through a notification action first and the unprivileged UI starts when
// there is no answer.
func (h *Handler) Check(ctx context.Context) Outcome {
	h.last = h.check(ctx)
	h.logger.Debug("crash check finished", logging.String("outcome", h.last.String()))
	return h.last
}

func (h *Handler) check(ctx context.Context) Outcome {
	helpers := h.launcher.Helpers()
	if !launcher.IsExecutable(helpers.ApportGTK) {
		h.logger.Debug("report UI not installed", logging.String(logging.FieldHelper, helpers.ApportGTK))
		return OutcomeSkipped
	}
	if !h.settings.ShowApportCrashes(ctx) {
		h.logger.Debug("crash notifications disabled")
		return OutcomeSkipped
	}

	res, err := h.launcher.Run(ctx, helpers.ApportCheckReports)
	if err != nil {
		h.spawnFailed(helpers.ApportCheckReports, err)
		return OutcomeFailed
	}
	userReports := res.ExitCode == 0
	systemReports := h.systemReports(ctx)

	if !userReports && !systemReports {
		h.applet.SetVisible(false)
		return OutcomeNone
	}
	h.logger.Info("crash reports found",
		logging.String(logging.FieldEventType, "crash_reports_found"),
		logging.Bool("user", userReports),
		logging.Bool("system", systemReports),
	)
	if userReports {
		h.invoke(false)
	}
	if !systemReports {
		return OutcomeUserReports
	}
	h.askSystemReport(ctx, userReports)
	return OutcomeSystemReports
}

// askSystemReport asks before starting the privileged UI. When the question
// cannot be answered, or is closed unanswered, the unprivileged UI is started
// instead unless it already runs for user reports.
func (h *Handler) askSystemReport(ctx context.Context, userStarted bool) {
	fallback := func() {
		if !userStarted {
			h.invoke(false)
		}
	}
	err := h.notifier.NotifyCrashReport(ctx, true, func() { h.invoke(true) }, fallback)
	switch {
	case err == nil:
		return
	case errors.Is(err, notifications.ErrNotInteractive):
		h.logger.Debug("no interactive notifications; starting the report UI unprivileged")
	default:
		logging.WarnWithContext(h.logger, "crash notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the notification daemon or ntfy topic"),
			logging.String(logging.FieldImpact, "the report UI starts without system reports"),
		)
	}
	fallback()
}

// systemReports runs apport-checkreports --system for admins.
func (h *Handler) systemReports(ctx context.Context) bool {
	if !h.isAdmin() {
		return false
	}
	helpers := h.launcher.Helpers()
	res, err := h.launcher.Run(ctx, helpers.ApportCheckReports, "--system")
	if err != nil {
		h.spawnFailed(helpers.ApportCheckReports, err)
		return false
	}
	return res.ExitCode == 0
}

func (h *Handler) invoke(privileged bool) {
	app := h.launcher.Helpers().ApportGTK
	if err := h.launcher.Invoke(privileged, app); err != nil {
		h.spawnFailed(app, err)
		return
	}
	h.applet.SetVisible(false)
	h.logger.Debug("report UI started", logging.Bool("privileged", privileged))
}

func (h *Handler) spawnFailed(helper string, err error) {
	logging.WarnWithContext(h.logger, "helper failed to start", "helper_spawn_failed",
		logging.String(logging.FieldHelper, helper),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check apport is installed"),
		logging.String(logging.FieldImpact, "crash reports are looked for again on the next crash event"),
	)
}
