// Package updates runs the update-availability check and owns the update
// applet.
//
// The checker prints "<upgrades>;<security>" or an "E: <message>" line. The
// result decides the applet state, the delayed desktop notification, the
// outdated-information warning and whether the update manager is started
// automatically.
package updates
