package security

import (
	"context"
	"log/slog"
)

// RedactorService is the AppContext key the process Redactor is registered
// under, so modules can add the secrets they load (API keys, bot tokens).
const RedactorService = "security.redactor"

// RedactingHandler wraps a slog.Handler and scrubs secrets from the message
// and every attribute before they reach the inner handler.
type RedactingHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

var _ slog.Handler = (*RedactingHandler)(nil)

// NewRedactingHandler wraps inner.
func NewRedactingHandler(inner slog.Handler, redactor *Redactor) *RedactingHandler {
	return &RedactingHandler{inner: inner, redactor: redactor}
}

// Redactor returns the redactor shared by this handler and the handlers
// derived from it.
func (h *RedactingHandler) Redactor() *Redactor {
	return h.redactor
}

// Enabled delegates to the inner handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle rebuilds the record with a redacted message and attributes.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	out := slog.NewRecord(record.Time, record.Level, h.redactor.Redact(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

// WithAttrs redacts attrs once and folds them into the inner handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

// WithGroup delegates to the inner handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	// Resolve LogValuers first; errors and Stringers stay KindAny.
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			redacted[i] = h.redactAttr(ga)
		}
		a.Value = slog.GroupValue(redacted...)
		return a
	case slog.KindString, slog.KindAny:
	default:
		// Numbers, bools, times and durations carry no secrets.
		return a
	}

	s := a.Value.String()
	if s != "" && secretKeyPattern.MatchString(a.Key) {
		a.Value = slog.StringValue(RedactPlaceholder)
		return a
	}
	if redacted := h.redactor.Redact(s); redacted != s || a.Value.Kind() == slog.KindString {
		a.Value = slog.StringValue(redacted)
	}
	return a
}
