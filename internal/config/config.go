package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the watched package-manager locations and the daemon's own
// state directories.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`

	AptListsDir           string `toml:"apt_lists_dir"`
	AptListsPartialDir    string `toml:"apt_lists_partial_dir"`
	AptArchivesDir        string `toml:"apt_archives_dir"`
	AptArchivesPartialDir string `toml:"apt_archives_partial_dir"`
	HooksDir              string `toml:"hooks_dir"`
	CrashDir              string `toml:"crash_dir"`

	DpkgStatus         string `toml:"dpkg_status"`
	DpkgRunStamp       string `toml:"dpkg_run_stamp"`
	UpdateSuccessStamp string `toml:"update_success_stamp"`
	AvahiMarker        string `toml:"avahi_marker"`

	AptLibPrefix   string `toml:"apt_lib_prefix"`
	AptCachePrefix string `toml:"apt_cache_prefix"`

	RebootRequired  string   `toml:"reboot_required"`
	PluginDir       string   `toml:"plugin_dir"`
	PackageLogGlobs []string `toml:"package_log_globs"`
	ApplicationsDir string   `toml:"applications_dir"`
}

// Helpers names the external programs the daemon drives.
type Helpers struct {
	AptCheck            string `toml:"apt_check"`
	PackageSystemLocked string `toml:"package_system_locked"`
	ApportCheckReports  string `toml:"apport_checkreports"`
	ApportGTK           string `toml:"apport_gtk"`
	UpdateManager       string `toml:"update_manager"`
	Pkexec              string `toml:"pkexec"`
	Nice                string `toml:"nice"`
	Ionice              string `toml:"ionice"`
	UnattendedUpgrades  string `toml:"unattended_upgrades"`
	ReleaseChecker      string `toml:"release_checker"`
	PrinterApplet       string `toml:"printer_applet"`
	BackendHelper       string `toml:"backend_helper"`
	SoftwareProperties  string `toml:"software_properties"`
	Shell               string `toml:"shell"`
}

// Settings holds the initial values for the persisted desktop settings. Once a
// key has been written to the settings store the stored value wins.
type Settings struct {
	NoShowNotifications       bool  `toml:"no_show_notifications"`
	ShowApportCrashes         bool  `toml:"show_apport_crashes"`
	EndSystemUIDs             int   `toml:"end_system_uids"`
	RegularAutoLaunchInterval int   `toml:"regular_auto_launch_interval"`
	LaunchTime                int64 `toml:"launch_time"`
}

// Workflow contains reconciliation timing and startup behaviour.
type Workflow struct {
	PollInterval           int  `toml:"poll_interval"`
	AptIdleTimeout         int  `toml:"apt_idle_timeout"`
	StartupDelay           int  `toml:"startup_delay"`
	CrashCheckDelay        int  `toml:"crash_check_delay"`
	NotificationDelay      int  `toml:"notification_delay"`
	OutdatedAgeDays        int  `toml:"outdated_age_days"`
	OutdatedWait           int  `toml:"outdated_wait"`
	SecurityLaunchInterval int  `toml:"security_launch_interval"`
	ForceStart             bool `toml:"force_start"`
	ForcePkexec            bool `toml:"force_pkexec"`
}

// Tray selects the presentation backend.
type Tray struct {
	Backend string `toml:"backend"`
}

// Notifications contains desktop and ntfy notification settings.
type Notifications struct {
	Desktop        bool   `toml:"desktop"`
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// UEvent controls printer hot-plug detection.
type UEvent struct {
	Enabled bool `toml:"enabled"`
}

// Release controls the periodic distribution upgrade check.
type Release struct {
	Enabled       bool `toml:"enabled"`
	DevelRelease  bool `toml:"devel_release"`
	CheckInterval int  `toml:"check_interval"`
	MinWaitHours  int  `toml:"min_wait_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format             string            `toml:"format"`
	Level              string            `toml:"level"`
	RetentionDays      int               `toml:"retention_days"`
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Config encapsulates all configuration values for update-notifier.
//
// Configuration sections by subsystem:
//   - Paths: watched package-manager paths and daemon state locations
//   - Helpers: external programs for checks and launches
//   - Settings: initial values for the persisted desktop settings
//   - Workflow: reconciliation interval and timers
//   - Tray: presentation backend
//   - Notifications: desktop bus and ntfy delivery
//   - UEvent: printer hot-plug detection
//   - Release: distribution upgrade checks
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Helpers       Helpers       `toml:"helpers"`
	Settings      Settings      `toml:"settings"`
	Workflow      Workflow      `toml:"workflow"`
	Tray          Tray          `toml:"tray"`
	Notifications Notifications `toml:"notifications"`
	UEvent        UEvent        `toml:"uevent"`
	Release       Release       `toml:"release"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("update-notifier.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "update-notifier.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "update-notifier.lock")
}

// StorePath returns the settings database location.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.StateDir, "state.db")
}

// WatchedDirs lists the directories monitored for package-manager, hook and crash activity.
func (c *Config) WatchedDirs() []string {
	return []string{
		c.Paths.AptListsDir,
		c.Paths.AptListsPartialDir,
		c.Paths.AptArchivesDir,
		c.Paths.AptArchivesPartialDir,
		c.Paths.HooksDir,
		c.Paths.CrashDir,
	}
}

// WatchedFiles lists the individual files monitored for changes.
func (c *Config) WatchedFiles() []string {
	return []string{
		c.Paths.DpkgStatus,
		c.Paths.DpkgRunStamp,
		c.Paths.UpdateSuccessStamp,
		c.Paths.AvahiMarker,
	}
}

// PollInterval returns the reconciliation tick period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workflow.PollInterval) * time.Second
}

// AptIdleTimeout returns how long apt activity may stay silent before the
// applet is forced out of its busy state.
func (c *Config) AptIdleTimeout() time.Duration {
	return time.Duration(c.Workflow.AptIdleTimeout) * time.Second
}

// StartupDelay returns the delay before applets are created.
func (c *Config) StartupDelay() time.Duration {
	return time.Duration(c.Workflow.StartupDelay) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath applies the config path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
