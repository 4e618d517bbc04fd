// Package reconcile runs the daemon's reconciliation loop.
//
// Filesystem events only set flags on the pending state. Every interval the
// loop reads those flags and runs the matching checks in a fixed order:
// finished package operations, hooks, apt activity, apt idle timeout, crash
// reports and the avahi marker. Timers, notification actions and control
// requests are posted back into the same goroutine, so no check ever runs
// concurrently with another.
package reconcile
