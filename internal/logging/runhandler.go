package logging

import (
	"context"
	"log/slog"
)

// RunAttrs returns the attributes describing the current simulation run,
// typically its id and parameters. It is called once per record.
type RunAttrs func() []slog.Attr

// RunHandler stamps every record with the current run attributes before
// passing it on. Attributes given at the call site win over run attributes
// with the same key.
type RunHandler struct {
	next slog.Handler
	run  RunAttrs
}

// NewRunHandler wraps next. A nil run source makes it a pass-through.
func NewRunHandler(next slog.Handler, run RunAttrs) *RunHandler {
	return &RunHandler{next: next, run: run}
}

func (h *RunHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle adds the run attributes missing from r and delegates.
func (h *RunHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.run == nil {
		return h.next.Handle(ctx, r)
	}
	attrs := h.run()
	if len(attrs) == 0 {
		return h.next.Handle(ctx, r)
	}

	present := make(map[string]struct{}, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		present[a.Key] = struct{}{}
		return true
	})
	for _, a := range attrs {
		if _, ok := present[a.Key]; ok || a.Equal(slog.Attr{}) {
			continue
		}
		r.AddAttrs(a)
	}
	return h.next.Handle(ctx, r)
}

func (h *RunHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RunHandler{next: h.next.WithAttrs(attrs), run: h.run}
}

func (h *RunHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &RunHandler{next: h.next.WithGroup(name), run: h.run}
}
