// Package monitor turns filesystem activity under the apt, dpkg, hook and
// crash paths into pending reconciliation work.
//
// Source wraps an inotify instance and forwards events for an allow-list of
// directories and files. Accumulator classifies each changed path into the
// PendingState flags the reconciliation tick consumes.
package monitor
