package logging

import (
	"context"
	"log/slog"
)

// teeHandler delivers each record to every handler that accepts its level.
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range t {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, handler := range t {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(teeHandler, len(t))
	for i, handler := range t {
		next[i] = handler.WithAttrs(attrs)
	}
	return next
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	next := make(teeHandler, len(t))
	for i, handler := range t {
		next[i] = handler.WithGroup(name)
	}
	return next
}

// TeeLogger duplicates log output from base into the provided loggers.
func TeeLogger(base *slog.Logger, others ...*slog.Logger) *slog.Logger {
	var handlers teeHandler
	for _, logger := range append([]*slog.Logger{base}, others...) {
		if logger != nil {
			handlers = append(handlers, logger.Handler())
		}
	}
	switch len(handlers) {
	case 0:
		return NewNop()
	case 1:
		return slog.New(handlers[0])
	default:
		return slog.New(handlers)
	}
}
