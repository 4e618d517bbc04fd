package preflight

import (
	"context"
	"strings"

	"github.com/godbus/dbus/v5"

	"updatenotifier/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. conn
// may be nil when no session bus is available.
func RunAll(ctx context.Context, cfg *config.Config, conn *dbus.Conn) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	for _, dir := range cfg.WatchedDirs() {
		results = append(results, CheckReadable("Watched directory", dir))
	}

	if cfg.Tray.Backend != "headless" {
		results = append(results, CheckBusName(conn, "Tray host", statusNotifierWatcher))
	}
	if cfg.Notifications.Desktop {
		results = append(results, CheckBusName(conn, "Notification daemon", notificationsName))
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		results = append(results, CheckNtfy(ctx, topic))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
