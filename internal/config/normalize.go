package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeHelpers()
	c.normalizeTray()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.state_dir", &c.Paths.StateDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.apt_lists_dir", &c.Paths.AptListsDir},
		{"paths.apt_lists_partial_dir", &c.Paths.AptListsPartialDir},
		{"paths.apt_archives_dir", &c.Paths.AptArchivesDir},
		{"paths.apt_archives_partial_dir", &c.Paths.AptArchivesPartialDir},
		{"paths.hooks_dir", &c.Paths.HooksDir},
		{"paths.crash_dir", &c.Paths.CrashDir},
		{"paths.dpkg_status", &c.Paths.DpkgStatus},
		{"paths.dpkg_run_stamp", &c.Paths.DpkgRunStamp},
		{"paths.update_success_stamp", &c.Paths.UpdateSuccessStamp},
		{"paths.avahi_marker", &c.Paths.AvahiMarker},
		{"paths.apt_lib_prefix", &c.Paths.AptLibPrefix},
		{"paths.apt_cache_prefix", &c.Paths.AptCachePrefix},
		{"paths.reboot_required", &c.Paths.RebootRequired},
		{"paths.plugin_dir", &c.Paths.PluginDir},
		{"paths.applications_dir", &c.Paths.ApplicationsDir},
	}
	defaults := Default()
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	if c.Paths.StateDir == "" {
		expanded, err := expandPath(defaults.Paths.StateDir)
		if err != nil {
			return fmt.Errorf("paths.state_dir: %w", err)
		}
		c.Paths.StateDir = expanded
	}
	if c.Paths.LogDir == "" {
		expanded, err := expandPath(defaults.Paths.LogDir)
		if err != nil {
			return fmt.Errorf("paths.log_dir: %w", err)
		}
		c.Paths.LogDir = expanded
	}

	globs := c.Paths.PackageLogGlobs[:0]
	for _, glob := range c.Paths.PackageLogGlobs {
		if trimmed := strings.TrimSpace(glob); trimmed != "" {
			globs = append(globs, trimmed)
		}
	}
	c.Paths.PackageLogGlobs = globs
	return nil
}

func (c *Config) normalizeHelpers() {
	helpers := []*string{
		&c.Helpers.AptCheck,
		&c.Helpers.PackageSystemLocked,
		&c.Helpers.ApportCheckReports,
		&c.Helpers.ApportGTK,
		&c.Helpers.UpdateManager,
		&c.Helpers.Pkexec,
		&c.Helpers.Nice,
		&c.Helpers.Ionice,
		&c.Helpers.UnattendedUpgrades,
		&c.Helpers.ReleaseChecker,
		&c.Helpers.PrinterApplet,
		&c.Helpers.BackendHelper,
		&c.Helpers.SoftwareProperties,
		&c.Helpers.Shell,
	}
	for _, helper := range helpers {
		*helper = strings.TrimSpace(*helper)
	}
	if c.Helpers.Shell == "" {
		c.Helpers.Shell = "/bin/sh"
	}
}

func (c *Config) normalizeTray() {
	c.Tray.Backend = strings.ToLower(strings.TrimSpace(c.Tray.Backend))
	if c.Tray.Backend == "" {
		c.Tray.Backend = defaultTrayBackend
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.ComponentOverrides) > 0 {
		normalized := make(map[string]string, len(c.Logging.ComponentOverrides))
		for component, level := range c.Logging.ComponentOverrides {
			key := strings.ToLower(strings.TrimSpace(component))
			if key == "" {
				continue
			}
			normalized[key] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.ComponentOverrides = normalized
	}
}
