// Package logs reads the daemon's run log for the CLI logs command: the last
// N lines and then, optionally, lines as they are appended.
package logs
