package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"updatenotifier/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	prevDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevDir) })

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "update-notifier", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "update-notifier"); cfg.Paths.StateDir != want {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, want)
	}
	if cfg.Paths.HooksDir != "/var/lib/update-notifier/user.d" {
		t.Fatalf("unexpected hooks dir: %q", cfg.Paths.HooksDir)
	}
	if cfg.PollInterval() != 180*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.AptIdleTimeout() != 600*time.Second {
		t.Fatalf("unexpected apt idle timeout: %s", cfg.AptIdleTimeout())
	}
	if cfg.StartupDelay() != time.Second {
		t.Fatalf("unexpected startup delay: %s", cfg.StartupDelay())
	}
	if !cfg.Settings.ShowApportCrashes {
		t.Fatal("expected crash reports enabled by default")
	}
	if cfg.Tray.Backend != "auto" {
		t.Fatalf("unexpected tray backend: %q", cfg.Tray.Backend)
	}
	if got := cfg.SocketPath(); got != filepath.Join(cfg.Paths.StateDir, "update-notifier.sock") {
		t.Fatalf("unexpected socket path: %q", got)
	}
}

func TestWatchedPathsMatchStockLayout(t *testing.T) {
	cfg := config.Default()
	wantDirs := []string{
		"/var/lib/apt/lists",
		"/var/lib/apt/lists/partial",
		"/var/cache/apt/archives",
		"/var/cache/apt/archives/partial",
		"/var/lib/update-notifier/user.d",
		"/var/crash",
	}
	wantFiles := []string{
		"/var/lib/dpkg/status",
		"/var/lib/update-notifier/dpkg-run-stamp",
		"/var/lib/apt/periodic/update-success-stamp",
		"/var/run/avahi-daemon/disabled-for-unicast-local",
	}
	if got := cfg.WatchedDirs(); strings.Join(got, ",") != strings.Join(wantDirs, ",") {
		t.Fatalf("unexpected watched dirs: %v", got)
	}
	if got := cfg.WatchedFiles(); strings.Join(got, ",") != strings.Join(wantFiles, ",") {
		t.Fatalf("unexpected watched files: %v", got)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := struct {
		Paths struct {
			StateDir string `toml:"state_dir"`
			HooksDir string `toml:"hooks_dir"`
		} `toml:"paths"`
		Workflow struct {
			PollInterval int `toml:"poll_interval"`
		} `toml:"workflow"`
		Tray struct {
			Backend string `toml:"backend"`
		} `toml:"tray"`
		Logging struct {
			Format             string            `toml:"format"`
			ComponentOverrides map[string]string `toml:"component_overrides"`
		} `toml:"logging"`
	}{}
	payload.Paths.StateDir = "~/state"
	payload.Paths.HooksDir = "~/hooks"
	payload.Workflow.PollInterval = 30
	payload.Tray.Backend = " Headless "
	payload.Logging.Format = "JSON"
	payload.Logging.ComponentOverrides = map[string]string{" Hooks ": "DEBUG"}

	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q (exists=%v)", resolved, exists)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, "state") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.HooksDir != filepath.Join(tempHome, "hooks") {
		t.Fatalf("unexpected hooks dir: %q", cfg.Paths.HooksDir)
	}
	if cfg.Workflow.PollInterval != 30 {
		t.Fatalf("unexpected poll interval: %d", cfg.Workflow.PollInterval)
	}
	if cfg.Tray.Backend != "headless" {
		t.Fatalf("expected normalized tray backend, got %q", cfg.Tray.Backend)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.ComponentOverrides["hooks"] != "debug" {
		t.Fatalf("expected normalized component override, got %v", cfg.Logging.ComponentOverrides)
	}
	if cfg.Paths.CrashDir != "/var/crash" {
		t.Fatalf("expected default crash dir to survive partial config, got %q", cfg.Paths.CrashDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero poll interval", func(c *config.Config) { c.Workflow.PollInterval = 0 }, "workflow.poll_interval"},
		{"negative startup delay", func(c *config.Config) { c.Workflow.StartupDelay = -1 }, "workflow.startup_delay"},
		{"unknown tray backend", func(c *config.Config) { c.Tray.Backend = "gtk" }, "tray.backend"},
		{"missing apt check", func(c *config.Config) { c.Helpers.AptCheck = " " }, "helpers.apt_check"},
		{"bad override level", func(c *config.Config) {
			c.Logging.ComponentOverrides = map[string]string{"hooks": "loud"}
		}, "logging.component_overrides.hooks"},
		{"release interval", func(c *config.Config) { c.Release.CheckInterval = 0 }, "release.check_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateSkipsDisabledRelease(t *testing.T) {
	cfg := config.Default()
	cfg.Release.Enabled = false
	cfg.Release.CheckInterval = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled release section to skip validation, got %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Workflow.PollInterval != 180 {
		t.Fatalf("unexpected sample poll interval: %d", cfg.Workflow.PollInterval)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "state", "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}
