package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateHelpers(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateTray(); err != nil {
		return err
	}
	if err := c.validateRelease(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	required := map[string]string{
		"paths.apt_lists_dir":        c.Paths.AptListsDir,
		"paths.hooks_dir":            c.Paths.HooksDir,
		"paths.crash_dir":            c.Paths.CrashDir,
		"paths.dpkg_status":          c.Paths.DpkgStatus,
		"paths.update_success_stamp": c.Paths.UpdateSuccessStamp,
		"paths.apt_lib_prefix":       c.Paths.AptLibPrefix,
		"paths.apt_cache_prefix":     c.Paths.AptCachePrefix,
	}
	return ensureNonEmptyMap(required)
}

func (c *Config) validateHelpers() error {
	required := map[string]string{
		"helpers.apt_check":           c.Helpers.AptCheck,
		"helpers.apport_checkreports": c.Helpers.ApportCheckReports,
		"helpers.update_manager":      c.Helpers.UpdateManager,
	}
	return ensureNonEmptyMap(required)
}

func (c *Config) validateWorkflow() error {
	values := map[string]int{
		"workflow.poll_interval":            c.Workflow.PollInterval,
		"workflow.apt_idle_timeout":         c.Workflow.AptIdleTimeout,
		"workflow.outdated_age_days":        c.Workflow.OutdatedAgeDays,
		"workflow.outdated_wait":            c.Workflow.OutdatedWait,
		"workflow.security_launch_interval": c.Workflow.SecurityLaunchInterval,
	}
	if err := ensurePositiveMap(values); err != nil {
		return err
	}
	if c.Workflow.StartupDelay < 0 {
		return errors.New("workflow.startup_delay must be zero or positive")
	}
	if c.Workflow.CrashCheckDelay < 0 {
		return errors.New("workflow.crash_check_delay must be zero or positive")
	}
	if c.Workflow.NotificationDelay < 0 {
		return errors.New("workflow.notification_delay must be zero or positive")
	}
	return nil
}

func (c *Config) validateTray() error {
	switch c.Tray.Backend {
	case "auto", "indicator", "headless":
		return nil
	default:
		return fmt.Errorf("tray.backend: unsupported value %q (expected auto, indicator, or headless)", c.Tray.Backend)
	}
}

func (c *Config) validateRelease() error {
	if !c.Release.Enabled {
		return nil
	}
	return ensurePositiveMap(map[string]int{
		"release.check_interval": c.Release.CheckInterval,
		"release.min_wait_hours": c.Release.MinWaitHours,
	})
}

func (c *Config) validateLogging() error {
	for component, level := range c.Logging.ComponentOverrides {
		if !validLevel(level) {
			return fmt.Errorf("logging.component_overrides.%s: unsupported level %q", component, level)
		}
	}
	if !validLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureNonEmptyMap(values map[string]string) error {
	for key, value := range values {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}
