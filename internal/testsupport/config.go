package testsupport

import (
	"path/filepath"
	"testing"

	"updatenotifier/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose every path lives under a unique temp
// directory, mirroring the stock filesystem layout below it. Directories are
// not created; use WithDirectories for that.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	rebase := func(p *string) {
		if *p != "" && filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}

	paths := &cfgVal.Paths
	paths.StateDir = filepath.Join(base, "state")
	paths.LogDir = filepath.Join(base, "state", "logs")
	for _, p := range []*string{
		&paths.AptListsDir, &paths.AptListsPartialDir,
		&paths.AptArchivesDir, &paths.AptArchivesPartialDir,
		&paths.HooksDir, &paths.CrashDir,
		&paths.DpkgStatus, &paths.DpkgRunStamp, &paths.UpdateSuccessStamp, &paths.AvahiMarker,
		&paths.AptLibPrefix, &paths.AptCachePrefix,
		&paths.RebootRequired, &paths.PluginDir, &paths.ApplicationsDir,
	} {
		rebase(p)
	}
	globs := make([]string, len(paths.PackageLogGlobs))
	for i, g := range paths.PackageLogGlobs {
		globs[i] = filepath.Join(base, g)
	}
	paths.PackageLogGlobs = globs

	helpers := &cfgVal.Helpers
	for _, p := range []*string{
		&helpers.AptCheck, &helpers.PackageSystemLocked,
		&helpers.ApportCheckReports, &helpers.ApportGTK,
		&helpers.Pkexec, &helpers.Nice, &helpers.Ionice,
		&helpers.UnattendedUpgrades, &helpers.ReleaseChecker,
		&helpers.BackendHelper, &helpers.SoftwareProperties,
	} {
		rebase(p)
	}

	cfgVal.Tray.Backend = "headless"
	cfgVal.Notifications.Desktop = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDirectories creates the watched directories and the state directory.
func WithDirectories() ConfigOption {
	return func(b *configBuilder) {
		if err := b.cfg.EnsureDirectories(); err != nil {
			b.t.Fatalf("ensure directories: %v", err)
		}
		for _, dir := range b.cfg.WatchedDirs() {
			MkdirAll(b.t, dir)
		}
		for _, file := range b.cfg.WatchedFiles() {
			MkdirAll(b.t, filepath.Dir(file))
		}
	}
}

// WithoutLowPriority drops the nice and ionice wrappers so helpers run
// directly.
func WithoutLowPriority() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Helpers.Nice = ""
		b.cfg.Helpers.Ionice = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
