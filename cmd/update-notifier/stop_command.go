package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"updatenotifier/internal/ipc"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask the running daemon to exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if resp.Stopping {
					fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopping")
				}
				return nil
			})
		},
	}
}
