package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"

	"github.com/go-chi/chi/v5"
)

// WebhookDispatcherService is the AppContext key the dispatcher is
// registered under. Channels running in webhook mode register with it.
const WebhookDispatcherService = "gateway.webhook_dispatcher"

// Errors a WebhookHandler may wrap to pick the HTTP status.
var (
	// ErrUnauthorized answers 401.
	ErrUnauthorized = errors.New("gateway: unauthorized webhook")
	// ErrBadPayload answers 400.
	ErrBadPayload = errors.New("gateway: malformed webhook payload")
)

// WebhookHandler processes one webhook delivery. Handlers check their own
// credentials (Telegram sends a secret token header) and return quickly:
// the platform retries deliveries that are not acknowledged in time.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, source string, body []byte, headers http.Header) error
}

// WebhookHandlerFunc adapts a function to WebhookHandler.
type WebhookHandlerFunc func(ctx context.Context, source string, body []byte, headers http.Header) error

// HandleWebhook calls f.
func (f WebhookHandlerFunc) HandleWebhook(ctx context.Context, source string, body []byte, headers http.Header) error {
	return f(ctx, source, body, headers)
}

// maxWebhookBody bounds a webhook payload. Telegram updates are far smaller.
const maxWebhookBody = 1 << 20

// WebhookDispatcher serves POST /webhooks/{source} and hands the body to
// the handler registered for source.
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]WebhookHandler
	logger   *slog.Logger
}

// NewWebhookDispatcher creates a dispatcher with no sources.
func NewWebhookDispatcher(logger *slog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		handlers: map[string]WebhookHandler{},
		logger:   logger,
	}
}

// Register routes source to h. A source can be registered once.
func (d *WebhookDispatcher) Register(source string, h WebhookHandler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.handlers[source]; taken {
		return fmt.Errorf("gateway: webhook source %q already registered", source)
	}
	d.handlers[source] = h
	return nil
}

// Unregister removes source. Later deliveries get 404.
func (d *WebhookDispatcher) Unregister(source string) {
	d.mu.Lock()
	delete(d.handlers, source)
	d.mu.Unlock()
}

// Has reports whether source is registered.
func (d *WebhookDispatcher) Has(source string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[source]
	return ok
}

// Sources returns the registered sources, sorted.
func (d *WebhookDispatcher) Sources() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Sorted(maps.Keys(d.handlers))
}

// ServeHTTP implements http.Handler. The source comes from the chi URL
// parameter "source".
func (d *WebhookDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")

	d.mu.RLock()
	h, ok := d.handlers[source]
	d.mu.RUnlock()
	if !ok {
		d.logger.Warn("webhook received for unregistered source", "source", source)
		http.Error(w, "unknown webhook source", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	err = h.HandleWebhook(r.Context(), source, body, r.Header)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	case errors.Is(err, ErrUnauthorized):
		d.logger.Warn("webhook rejected", "source", source, "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrBadPayload):
		d.logger.Warn("webhook payload rejected", "source", source, "error", err)
		http.Error(w, "bad payload", http.StatusBadRequest)
	default:
		d.logger.Error("webhook handler failed", "source", source, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
