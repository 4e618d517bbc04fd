// Package logging assembles structured slog loggers and formatting helpers used
// across the update-notifier daemon and CLI.
//
// It owns the console and JSON handlers, the per-component level overrides
// behind the --debug-* flags, and the attr helpers that keep warnings in the
// cause + impact + hint shape. A no-op logger is provided for tests and for
// wiring code that cannot fail.
package logging
