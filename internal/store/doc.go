// Package store persists update-notifier state in SQLite.
//
// Two tables live here: namespaced desktop settings (notification toggles,
// auto-launch interval, last launch and release-check timestamps) and the
// per-file state of information hooks (content digest, seen and command-run
// flags). Schema changes bump schemaVersion; users delete state.db to adopt a
// new schema.
package store
