package logging

import (
	"context"
	"log/slog"
	"strings"
)

// componentLevelHandler applies a per-component minimum level. The wrapped
// handler must already be configured with the most verbose level any
// component needs.
type componentLevelHandler struct {
	next      slog.Handler
	base      slog.Level
	overrides map[string]slog.Level
	level     slog.Level
}

func newComponentLevelHandler(next slog.Handler, base slog.Level, overrides map[string]slog.Level) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &componentLevelHandler{next: next, base: base, overrides: overrides, level: base}
}

func (h *componentLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	// Inline component attributes are only visible in Handle, so allow the
	// most verbose override through here.
	floor := h.level
	for _, override := range h.overrides {
		if override < floor {
			floor = override
		}
	}
	if level < floor {
		return false
	}
	return h.next.Enabled(ctx, level)
}

func (h *componentLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	level := h.level
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == FieldComponent {
			level = h.levelFor(attr.Value.String())
			return false
		}
		return true
	})
	if record.Level < level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *componentLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	level := h.level
	for _, attr := range attrs {
		if attr.Key == FieldComponent {
			level = h.levelFor(attr.Value.String())
		}
	}
	return &componentLevelHandler{
		next:      h.next.WithAttrs(attrs),
		base:      h.base,
		overrides: h.overrides,
		level:     level,
	}
}

func (h *componentLevelHandler) WithGroup(name string) slog.Handler {
	return &componentLevelHandler{
		next:      h.next.WithGroup(name),
		base:      h.base,
		overrides: h.overrides,
		level:     h.level,
	}
}

func (h *componentLevelHandler) levelFor(component string) slog.Level {
	if level, ok := h.overrides[strings.ToLower(strings.TrimSpace(component))]; ok {
		return level
	}
	return h.base
}
