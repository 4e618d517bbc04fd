package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
	SessionID   string
	// ComponentLevels raises or lowers the level for loggers carrying a
	// matching component attribute.
	ComponentLevels map[string]string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	overrides := parseComponentLevels(opts.ComponentLevels)

	floor := level
	for _, override := range overrides {
		if override < floor {
			floor = override
		}
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(floor)

	writer, err := openWriters(opts.OutputPaths)
	if err != nil {
		return nil, err
	}

	addSource := opts.Development || level <= slog.LevelDebug

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		handler = newJSONHandler(writer, levelVar, addSource)
	case "console", "":
		handler = newPrettyHandler(writer, levelVar, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if len(overrides) > 0 {
		handler = newComponentLevelHandler(handler, level, overrides)
	}

	logger := slog.New(handler)
	if id := strings.TrimSpace(opts.SessionID); id != "" {
		logger = logger.With(String(FieldSessionID, id))
	}
	return logger, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseComponentLevels(levels map[string]string) map[string]slog.Level {
	if len(levels) == 0 {
		return nil
	}
	parsed := make(map[string]slog.Level, len(levels))
	for component, value := range levels {
		key := strings.ToLower(strings.TrimSpace(component))
		if key == "" {
			continue
		}
		parsed[key] = parseLevel(value)
	}
	return parsed
}

func openWriters(outputPaths []string) (io.Writer, error) {
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}
	seen := map[string]struct{}{}
	var writers []io.Writer
	for _, path := range outputPaths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create log directory %s: %w", dir, err)
				}
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
