package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Redacted replaces the value of sensitive attributes.
const Redacted = "[REDACTED]"

var sensitiveKeys = map[string]bool{
	"password": true,
	"secret":   true,
	"token":    true,
}

// New returns a text logger writing to w. Info and above by default,
// Debug when verbose. Sensitive attributes are redacted.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	})
	return slog.New(NewCorrelationHandler(inner))
}

func redact(groups []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted)
	}
	return a
}

type ctxKey int

const (
	commandKey ctxKey = iota
	locationKey
)

// WithCommand returns a context with the running command name set.
func WithCommand(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, commandKey, name)
}

// WithLocation returns a context with the credential store location set.
func WithLocation(ctx context.Context, location string) context.Context {
	return context.WithValue(ctx, locationKey, location)
}

// Command extracts the command name from the context, or "" if absent.
func Command(ctx context.Context) string {
	v, _ := ctx.Value(commandKey).(string)
	return v
}

// Location extracts the store location from the context, or "" if absent.
func Location(ctx context.Context) string {
	v, _ := ctx.Value(locationKey).(string)
	return v
}

// CorrelationHandler wraps an slog.Handler, injecting the command and
// store location from the context into every record.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := Command(ctx); v != "" {
		r.AddAttrs(slog.String("command", v))
	}
	if v := Location(ctx); v != "" {
		r.AddAttrs(slog.String("location", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
