package security

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

const botToken = "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw1"

func newTestLogger(r *Redactor, level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactingHandler(inner, r)), &buf
}

func TestRedactingHandler_Scrubs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		log    func(*slog.Logger)
		secret string
		keep   string
	}{
		{
			name:   "message",
			log:    func(l *slog.Logger) { l.Info("polling with " + botToken) },
			secret: botToken,
		},
		{
			name:   "literal in attribute",
			log:    func(l *slog.Logger) { l.Info("create", "response", "key=runtime-api-key", "chat_id", "100") },
			secret: "runtime-api-key",
			keep:   "chat_id=100",
		},
		{
			name:   "secret key name",
			log:    func(l *slog.Logger) { l.Info("session stored", "email_token", "eyJhbGciOiJIUzI1NiJ9.payload.sig") },
			secret: "eyJhbGciOiJIUzI1NiJ9",
			keep:   "email_token=" + RedactPlaceholder,
		},
		{
			name: "error value",
			log: func(l *slog.Logger) {
				l.Warn("send failed", "error", fmt.Errorf("post bot%s/sendMessage: %w", botToken, errors.New("timeout")))
			},
			secret: botToken,
			keep:   "timeout",
		},
		{
			name:   "with attrs",
			log:    func(l *slog.Logger) { l.With("api_key", "persistent").Info("ready") },
			secret: "persistent",
		},
		{
			name: "group",
			log: func(l *slog.Logger) {
				l.WithGroup("telegram").Info("webhook",
					slog.Group("request", slog.String("secret_token", "hdr-value"), slog.String("path", "/webhooks/telegram")))
			},
			secret: "hdr-value",
			keep:   "/webhooks/telegram",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewRedactor()
			r.AddLiteral("runtime-api-key")
			logger, buf := newTestLogger(r, slog.LevelDebug)

			tt.log(logger)

			out := buf.String()
			if strings.Contains(out, tt.secret) {
				t.Errorf("secret leaked: %s", out)
			}
			if tt.keep != "" && !strings.Contains(out, tt.keep) {
				t.Errorf("output lost %q: %s", tt.keep, out)
			}
		})
	}
}

func TestRedactingHandler_LeavesOrdinaryAttrs(t *testing.T) {
	t.Parallel()

	logger, buf := newTestLogger(NewRedactor(), slog.LevelDebug)
	logger.Info("inbox rendered", "chat_id", "123456789", "messages", 7, "lane_key", "telegram:100", "tokens", "")

	out := buf.String()
	if strings.Contains(out, RedactPlaceholder) {
		t.Errorf("unexpected redaction: %s", out)
	}
	for _, want := range []string{"chat_id=123456789", "messages=7", "lane_key=telegram:100"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q: %s", want, out)
		}
	}
}

func TestRedactingHandler_Enabled(t *testing.T) {
	t.Parallel()

	inner := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	handler := NewRedactingHandler(inner, NewRedactor())

	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug to be disabled with warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error to be enabled with warn level")
	}
}

func TestRedactingHandler_SharedRedactor(t *testing.T) {
	t.Parallel()

	r := NewRedactor()
	logger, buf := newTestLogger(r, slog.LevelInfo)
	child := logger.With("module", "provider.ghostmail")

	h, ok := child.Handler().(*RedactingHandler)
	if !ok || h.Redactor() != r {
		t.Fatal("derived handler should share the redactor")
	}

	// Secrets added after the logger was built are still scrubbed.
	r.AddLiteral("late-secret")
	child.Info("calling", "url", "https://api.example.com/domains/late-secret")
	if strings.Contains(buf.String(), "late-secret") {
		t.Errorf("late literal leaked: %s", buf.String())
	}
}
