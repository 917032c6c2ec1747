package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// fanoutHandler writes each record to the console and the log file.
type fanoutHandler []slog.Handler

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	live := slices.DeleteFunc(slices.Clone(handlers), func(h slog.Handler) bool { return h == nil })
	switch len(live) {
	case 0:
		return discardHandler{}
	case 1:
		return live[0]
	default:
		return fanoutHandler(live)
	}
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(f, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

// Handle gives every enabled handler its own copy of record.
func (f fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var err error
	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			err = errors.Join(err, h.Handle(ctx, record.Clone()))
		}
	}
	return err
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanoutHandler) derive(fn func(slog.Handler) slog.Handler) fanoutHandler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
