// Package notifications delivers update, crash, hook and avahi messages.
//
// The desktop transport talks to org.freedesktop.Notifications on the
// session bus and routes action clicks back into the daemon loop. The ntfy
// transport publishes the same messages to a topic URL for headless
// machines. Checks depend only on the Service interface; without any
// transport a no-op implementation is returned.
package notifications
