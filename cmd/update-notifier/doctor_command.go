package main

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"updatenotifier/internal/deps"
	"updatenotifier/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check helpers, paths and the session environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			colorize := shouldColorize(cmd.OutOrStdout())
			out := cmd.OutOrStdout()

			statuses := preflight.CheckSystemDeps(cfg)
			fmt.Fprintln(out, renderHelperTable(statuses))

			var conn *dbus.Conn
			if c, err := dbus.ConnectSessionBus(); err == nil {
				conn = c
				defer conn.Close()
			}
			results := preflight.RunAll(cmd.Context(), cfg, conn)
			lines := renderSectionHeader("Environment", colorize)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusWarn
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, m := range missing {
					names = append(names, m.Name)
				}
				return fmt.Errorf("required helpers missing: %s", strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func renderHelperTable(statuses []deps.Status) string {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		state := "ok"
		if !s.Available {
			state = "missing"
			if s.Optional {
				state = "missing (optional)"
			}
		}
		rows = append(rows, []string{s.Name, state, s.Command, s.Description})
	}
	return renderTable([]column{{title: "Helper"}, {title: "State"}, {title: "Command"}, {title: "Purpose"}}, rows)
}

