package logging

import (
	"context"
	"log/slog"
)

// FanoutHandler delivers every record to all of its child handlers.
type FanoutHandler struct {
	handlers []slog.Handler
}

// NewFanoutHandler creates a handler writing to all given handlers. Nil
// entries are dropped.
func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	valid := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			valid = append(valid, h)
		}
	}
	return &FanoutHandler{handlers: valid}
}

// Enabled reports whether any child handler accepts the level.
func (f *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle fans the record out. One failing child does not stop the rest.
func (f *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				continue
			}
		}
	}
	return nil
}

// WithAttrs distributes the attributes to every child.
func (f *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &FanoutHandler{handlers: handlers}
}

// WithGroup distributes the group to every child.
func (f *FanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &FanoutHandler{handlers: handlers}
}

// TickProvider returns the attributes describing the simulation step a
// record was emitted during.
type TickProvider func() []slog.Attr

// TickHandler wraps a handler and stamps each record with the current
// simulation step.
type TickHandler struct {
	inner    slog.Handler
	provider TickProvider
}

// NewTickHandler creates a handler that adds simulation context to each
// record.
func NewTickHandler(inner slog.Handler, provider TickProvider) *TickHandler {
	return &TickHandler{inner: inner, provider: provider}
}

// Enabled delegates to the wrapped handler.
func (h *TickHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle stamps and forwards the record.
func (h *TickHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs wraps the inner handler's result.
func (h *TickHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TickHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

// WithGroup wraps the inner handler's result.
func (h *TickHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &TickHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}
