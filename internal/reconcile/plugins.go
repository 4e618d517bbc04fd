package reconcile

import (
	"context"
	"log/slog"

	"updatenotifier/internal/launcher"
	"updatenotifier/internal/logging"
)

// PluginChain returns a plugin runner that executes the executable scripts
// in dir one after another in lexicographic order.
func PluginChain(dir string, l *launcher.Launcher, logger *slog.Logger) func(ctx context.Context) {
	logger = logging.NewComponentLogger(logger, "misc")
	return func(ctx context.Context) {
		scripts, err := launcher.ListPlugins(dir)
		if err != nil {
			logging.WarnWithContext(logger, "plugin directory unreadable", "plugin_dir_unreadable",
				logging.String(logging.FieldPath, dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the directory permissions"),
				logging.String(logging.FieldImpact, "cache-changed plugins skipped"),
			)
			return
		}
		if len(scripts) == 0 {
			return
		}
		logger.Debug("running cache-changed plugins", logging.Strings("scripts", scripts))
		l.RunChain(ctx, scripts)
	}
}
