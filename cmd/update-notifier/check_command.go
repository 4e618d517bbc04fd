package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"updatenotifier/internal/ipc"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run an update check in the daemon now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CheckNow()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Update)
				}
				u := resp.Update
				out := cmd.OutOrStdout()
				switch {
				case u.Message != "":
					fmt.Fprintf(out, "%s: %s\n", u.State, u.Message)
				case u.Upgrades == 0 && !u.RebootPending:
					fmt.Fprintln(out, "No updates available")
				default:
					fmt.Fprintf(out, "%d updates available (%d security)\n", u.Upgrades, u.Security)
					if u.RebootPending {
						fmt.Fprintln(out, "A restart is required")
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
