package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"updatenotifier/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderStatus(resp, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")
	return cmd
}

func renderStatus(st *ipc.StatusResponse, colorize bool) string {
	var lines []string
	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	lines = append(lines,
		renderStatusLine("Running", boolKind(st.Running), fmt.Sprintf("pid %d since %s", st.PID, formatTime(st.StartedAt)), colorize),
		renderStatusLine("Ready", boolKind(st.Ready), yesNo(st.Ready), colorize),
		renderStatusLine("Admin", statusInfo, yesNo(st.Admin), colorize),
		renderStatusLine("Tray", statusInfo, st.TrayBackend, colorize),
		renderStatusLine("Ticks", statusInfo, fmt.Sprintf("%d run, %d skipped, every %s", st.Ticks, st.SkippedTicks, time.Duration(st.IntervalSecs*float64(time.Second))), colorize),
		renderStatusLine("Plugins", statusInfo, fmt.Sprintf("%d runs, running: %s", st.PluginRuns, yesNo(st.PluginsRunning)), colorize),
		renderStatusLine("Log", statusInfo, st.LogPath, colorize),
	)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Updates", colorize)...)
	if st.Update == nil {
		lines = append(lines, renderStatusLine("State", statusInfo, "not started", colorize))
	} else {
		u := st.Update
		lines = append(lines,
			renderStatusLine("State", updateKind(u), u.State, colorize),
			renderStatusLine("Available", statusInfo, fmt.Sprintf("%d (%d security)", u.Upgrades, u.Security), colorize),
			renderStatusLine("Reboot pending", statusInfo, yesNo(u.RebootPending), colorize),
			renderStatusLine("Package manager busy", statusInfo, yesNo(u.AptRunning), colorize),
			renderStatusLine("Last check", statusInfo, formatTime(u.LastCheck), colorize),
		)
		if u.Message != "" {
			lines = append(lines, renderStatusLine("Message", statusWarn, u.Message, colorize))
		}
	}

	p := st.Pending
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Pending", colorize)...)
	lines = append(lines, renderStatusLine("Flags", statusInfo, pendingFlags(p), colorize))
	if !p.LastAptAction.IsZero() {
		lines = append(lines, renderStatusLine("Last apt activity", statusInfo, formatTime(p.LastAptAction), colorize))
	}

	if len(st.Applets) > 0 {
		rows := make([][]string, 0, len(st.Applets))
		for _, a := range st.Applets {
			rows = append(rows, []string{a.Name, yesNo(a.Visible), a.Icon, a.Tooltip, strconv.Itoa(len(a.Menu))})
		}
		lines = append(lines, "")
		lines = append(lines, renderTable([]column{
			{title: "Applet"}, {title: "Visible"}, {title: "Icon"}, {title: "Tooltip"}, {title: "Menu", numeric: true},
		}, rows))
	}
	return strings.Join(lines, "\n")
}

func pendingFlags(p ipc.Pending) string {
	var set []string
	for _, f := range []struct {
		name string
		on   bool
	}{
		{"dpkg-ran", p.DpkgRan},
		{"apt-running", p.AptRunning},
		{"hooks", p.HookPending},
		{"crash", p.CrashPending},
		{"avahi", p.AvahiPending},
	} {
		if f.on {
			set = append(set, f.name)
		}
	}
	if len(set) == 0 {
		return "none"
	}
	return strings.Join(set, ", ")
}

func boolKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusWarn
}

func updateKind(u *ipc.UpdateStatus) statusKind {
	switch u.State {
	case "visible-urgent", "error":
		return statusError
	case "visible-normal":
		return statusWarn
	case "hidden":
		return statusOK
	default:
		return statusInfo
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
