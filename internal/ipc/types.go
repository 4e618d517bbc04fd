package ipc

import "time"

// ServiceName is the RPC service the server registers.
const ServiceName = "UpdateNotifier"

// StatusRequest requests the daemon status.
type StatusRequest struct{}

// Applet is one tray icon as last presented.
type Applet struct {
	Name    string   `json:"name"`
	Icon    string   `json:"icon"`
	Tooltip string   `json:"tooltip"`
	Visible bool     `json:"visible"`
	Busy    bool     `json:"busy"`
	Menu    []string `json:"menu,omitempty"`
}

// Pending mirrors the flags accumulated since the last tick.
type Pending struct {
	DpkgRan       bool      `json:"dpkg_ran"`
	AptRunning    bool      `json:"apt_running"`
	HookPending   bool      `json:"hook_pending"`
	CrashPending  bool      `json:"crash_pending"`
	AvahiPending  bool      `json:"avahi_pending"`
	LastAptAction time.Time `json:"last_apt_action"`
}

// UpdateStatus is the result of the last update check.
type UpdateStatus struct {
	State          string    `json:"state"`
	Upgrades       uint      `json:"upgrades"`
	Security       uint      `json:"security"`
	RebootPending  bool      `json:"reboot_pending"`
	Message        string    `json:"message,omitempty"`
	AptRunning     bool      `json:"apt_running"`
	NagScheduled   bool      `json:"nag_scheduled"`
	LastCheck      time.Time `json:"last_check"`
	LastAutoLaunch time.Time `json:"last_auto_launch"`
}

// StatusResponse describes the running daemon.
type StatusResponse struct {
	Running        bool          `json:"running"`
	PID            int           `json:"pid"`
	StartedAt      time.Time     `json:"started_at"`
	Admin          bool          `json:"admin"`
	TrayBackend    string        `json:"tray_backend"`
	LockPath       string        `json:"lock_path"`
	StorePath      string        `json:"store_path"`
	LogPath        string        `json:"log_path"`
	Watched        []string      `json:"watched"`
	Ready          bool          `json:"ready"`
	Ticks          uint64        `json:"ticks"`
	SkippedTicks   uint64        `json:"skipped_ticks"`
	LastTick       time.Time     `json:"last_tick"`
	IntervalSecs   float64       `json:"interval_seconds"`
	PluginsRunning bool          `json:"plugins_running"`
	PluginRuns     uint64        `json:"plugin_runs"`
	Pending        Pending       `json:"pending"`
	Update         *UpdateStatus `json:"update,omitempty"`
	Applets        []Applet      `json:"applets"`
}

// CheckRequest forces an update check.
type CheckRequest struct{}

// CheckResponse carries the result of a forced check.
type CheckResponse struct {
	Update UpdateStatus `json:"update"`
}

// TestNotificationRequest sends a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the test notification outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// StopRequest asks the daemon process to exit.
type StopRequest struct{}

// StopResponse acknowledges a stop request.
type StopResponse struct {
	Stopping bool `json:"stopping"`
}
