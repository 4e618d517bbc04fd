// Package main hosts the update-notifier entrypoint and command graph.
//
// Run without a subcommand it becomes the session daemon. The subcommands
// talk to a running daemon over its IPC socket (status, check, test-notify,
// stop) or work offline (doctor, config).
package main
