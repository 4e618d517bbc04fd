// Package tray presents the update, hook and crash applets.
//
// Presenter is the backend interface. Indicator exports an
// org.kde.StatusNotifierItem with a com.canonical.dbusmenu menu on the
// session bus; Headless keeps the state in memory for sessions without a
// tray host. Applet mirrors the pushed state so status queries and tests do
// not depend on the backend.
package tray
