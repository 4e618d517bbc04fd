// Package daemon coordinates the long-running update-notifier session
// process.
//
// It takes the single-instance lock, subscribes the filesystem watches, owns
// the reconciliation loop and, after the startup delay, creates the three
// applets and their checks. Printer detection and the release upgrade check
// run alongside. The daemon exposes status and on-demand checks for the IPC
// server.
//
// Keep orchestration here: each check lives in its own package and the
// daemon only wires them to the loop.
package daemon
