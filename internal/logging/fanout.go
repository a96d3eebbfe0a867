package logging

import (
	"context"
	"errors"
	"log/slog"
)

// FanoutHandler copies each record to every output: console, log file,
// Graylog and the OTel bridge.
type FanoutHandler struct {
	outputs []slog.Handler
}

// NewFanoutHandler drops nil outputs so callers can pass optional ones
// unconditionally.
func NewFanoutHandler(outputs ...slog.Handler) *FanoutHandler {
	kept := make([]slog.Handler, 0, len(outputs))
	for _, h := range outputs {
		if h != nil {
			kept = append(kept, h)
		}
	}
	return &FanoutHandler{outputs: kept}
}

// Enabled reports whether at least one output takes records at level.
func (f *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.outputs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle writes r to every enabled output. A failing output does not stop
// the others; all failures are joined into the returned error.
func (f *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.outputs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *FanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *FanoutHandler) each(fn func(slog.Handler) slog.Handler) *FanoutHandler {
	out := make([]slog.Handler, len(f.outputs))
	for i, h := range f.outputs {
		out[i] = fn(h)
	}
	return &FanoutHandler{outputs: out}
}
