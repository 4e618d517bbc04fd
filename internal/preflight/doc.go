// Package preflight provides readiness checks for the session environment
// and filesystem paths the daemon depends on.
//
// The CLI doctor command runs RunAll and the helper checks and prints the
// results. The daemon logs the helper snapshot at startup. Each check is
// gated by its config toggle: disabled features are skipped.
package preflight
