package daemon

import (
	"context"
	"time"

	"updatenotifier/internal/avahi"
	"updatenotifier/internal/crash"
	"updatenotifier/internal/hooks"
	"updatenotifier/internal/logging"
	"updatenotifier/internal/reconcile"
	"updatenotifier/internal/tray"
	"updatenotifier/internal/updates"
)

const (
	appletUpdate = "update"
	appletHook   = "hook"
	appletCrash  = "crashreport"
)

// initApplets creates the applets and their checks and marks the loop
// ready. It runs on the loop goroutine once the startup delay has passed.
func (d *Daemon) initApplets(ctx context.Context) {
	admin := d.isAdmin()
	d.mu.Lock()
	d.admin = admin
	d.mu.Unlock()

	var upd reconcile.Updates
	if admin || d.opts.Force || d.cfg.Workflow.ForceStart {
		handler := updates.New(updates.Deps{
			Launcher:  d.launcher,
			Settings:  d.settings,
			Notifier:  d.notifier,
			Applet:    d.newApplet(appletUpdate),
			Paths:     d.cfg.Paths,
			Workflow:  d.cfg.Workflow,
			AfterFunc: d.loop.AfterFunc,
			Logger:    d.logger,
		})
		handler.Init(ctx)
		upd = handler
	} else {
		d.logger.Info("update applet disabled for non-admin user",
			logging.String(logging.FieldEventType, "update_applet_disabled"),
		)
	}

	hookHandler := hooks.New(hooks.Deps{
		Dir:      d.cfg.Paths.HooksDir,
		Launcher: d.launcher,
		Records:  d.store,
		Notifier: d.notifier,
		Applet:   d.newApplet(appletHook),
		IsAdmin:  func() bool { return admin },
		Logger:   d.logger,
	})
	hookHandler.Init(ctx)

	crashHandler := crash.New(crash.Deps{
		Launcher: d.launcher,
		Settings: d.settings,
		Notifier: d.notifier,
		Applet:   d.newApplet(appletCrash),
		IsAdmin:  func() bool { return admin },
		Logger:   d.logger,
	})
	crashHandler.Init()

	avahiNotifier := avahi.New(d.cfg.Paths.AvahiMarker, d.notifier, d.logger)

	d.loop.SetHandlers(upd, hookHandler, crashHandler, avahiNotifier)

	// Reports left over from before login are looked at once the session
	// has settled.
	delay := time.Duration(d.cfg.Workflow.CrashCheckDelay) * time.Second
	d.loop.AfterFunc(delay, func() { crashHandler.Check(ctx) })
	avahiNotifier.Check(ctx)

	d.logger.Info("applets initialized",
		logging.String(logging.FieldEventType, "applets_ready"),
		logging.Bool("admin", admin),
		logging.Bool("update_applet", upd != nil),
	)
}

func (d *Daemon) newApplet(id string) *tray.Applet {
	applet := tray.NewApplet(id, d.factory.New(id), d.logger)
	d.mu.Lock()
	d.applets = append(d.applets, applet)
	d.mu.Unlock()
	return applet
}

func (d *Daemon) isAdmin() bool {
	admin, err := d.users.InAdminGroup()
	if err != nil {
		logging.WarnWithContext(d.logger, "admin group lookup failed", "admin_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the user and group databases"),
			logging.String(logging.FieldImpact, "the session is treated as non-admin"),
		)
		return false
	}
	return admin
}
