package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"updatenotifier/internal/daemon"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
		case errors.Is(err, daemon.ErrAlreadyRunning):
			fmt.Fprintln(os.Stderr, "update-notifier is already running")
		default:
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
