package config

const (
	defaultConfigPath = "~/.config/update-notifier/config.toml"
	defaultStateDir   = "~/.local/share/update-notifier"
	defaultLogDir     = "~/.local/share/update-notifier/logs"

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 14

	defaultPollInterval           = 180
	defaultAptIdleTimeout         = 600
	defaultStartupDelay           = 1
	defaultCrashCheckDelay        = 1
	defaultNotificationDelay      = 5
	defaultOutdatedAgeDays        = 7
	defaultOutdatedWait           = 2 * 60 * 60
	defaultSecurityLaunchInterval = 12 * 60 * 60

	defaultEndSystemUIDs             = 1000
	defaultRegularAutoLaunchInterval = 7

	defaultReleaseCheckInterval = 10 * 60
	defaultReleaseMinWaitHours  = 48

	defaultTrayBackend          = "auto"
	defaultNotifyRequestTimeout = 10
)

// FallbackEndSystemUID replaces a non-positive end-system-uids setting.
const FallbackEndSystemUID = 500

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:              defaultStateDir,
			LogDir:                defaultLogDir,
			AptListsDir:           "/var/lib/apt/lists",
			AptListsPartialDir:    "/var/lib/apt/lists/partial",
			AptArchivesDir:        "/var/cache/apt/archives",
			AptArchivesPartialDir: "/var/cache/apt/archives/partial",
			HooksDir:              "/var/lib/update-notifier/user.d",
			CrashDir:              "/var/crash",
			DpkgStatus:            "/var/lib/dpkg/status",
			DpkgRunStamp:          "/var/lib/update-notifier/dpkg-run-stamp",
			UpdateSuccessStamp:    "/var/lib/apt/periodic/update-success-stamp",
			AvahiMarker:           "/var/run/avahi-daemon/disabled-for-unicast-local",
			AptLibPrefix:          "/var/lib/apt",
			AptCachePrefix:        "/var/cache/apt",
			RebootRequired:        "/var/run/reboot-required",
			PluginDir:             "/usr/share/update-notifier/plugins/cache-changed",
			PackageLogGlobs:       []string{"/var/log/dpkg.log*", "/var/log/apt/term.log*"},
			ApplicationsDir:       "/usr/share/applications",
		},
		Helpers: Helpers{
			AptCheck:            "/usr/lib/update-notifier/apt-check",
			PackageSystemLocked: "/usr/lib/update-notifier/package-system-locked",
			ApportCheckReports:  "/usr/share/apport/apport-checkreports",
			ApportGTK:           "/usr/share/apport/apport-gtk",
			UpdateManager:       "update-manager",
			Pkexec:              "/usr/bin/pkexec",
			Nice:                "/usr/bin/nice",
			Ionice:              "/usr/bin/ionice",
			UnattendedUpgrades:  "/usr/bin/unattended-upgrades",
			ReleaseChecker:      "/usr/lib/ubuntu-release-upgrader/check-new-release-gtk",
			PrinterApplet:       "system-config-printer-applet",
			BackendHelper:       "/usr/lib/update-notifier/backend_helper.py",
			SoftwareProperties:  "/usr/bin/software-properties-gtk",
			Shell:               "/bin/sh",
		},
		Settings: Settings{
			ShowApportCrashes:         true,
			EndSystemUIDs:             defaultEndSystemUIDs,
			RegularAutoLaunchInterval: defaultRegularAutoLaunchInterval,
		},
		Workflow: Workflow{
			PollInterval:           defaultPollInterval,
			AptIdleTimeout:         defaultAptIdleTimeout,
			StartupDelay:           defaultStartupDelay,
			CrashCheckDelay:        defaultCrashCheckDelay,
			NotificationDelay:      defaultNotificationDelay,
			OutdatedAgeDays:        defaultOutdatedAgeDays,
			OutdatedWait:           defaultOutdatedWait,
			SecurityLaunchInterval: defaultSecurityLaunchInterval,
		},
		Tray: Tray{
			Backend: defaultTrayBackend,
		},
		Notifications: Notifications{
			Desktop:        true,
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		UEvent: UEvent{
			Enabled: true,
		},
		Release: Release{
			Enabled:       true,
			CheckInterval: defaultReleaseCheckInterval,
			MinWaitHours:  defaultReleaseMinWaitHours,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
