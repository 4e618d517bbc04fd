// Package config loads, normalizes, and validates update-notifier configuration.
//
// It supplies the stock Ubuntu locations for the watched apt, dpkg, hook and
// crash paths, the helper programs the daemon launches, and the reconciliation
// timers. Values are read from TOML, tilde paths are expanded, and every
// interval is checked before the daemon starts.
//
// Always obtain settings through this package so tests can redirect the watched
// tree into a temporary directory without touching the live system paths.
package config
