package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/flemzord/ghostmail/internal/gateway"
)

// ErrInvalidSecret is returned when a webhook call carries the wrong
// X-Telegram-Bot-Api-Secret-Token header.
// It wraps gateway.ErrUnauthorized so the gateway answers 401.
var ErrInvalidSecret = fmt.Errorf("telegram: invalid webhook secret token: %w", gateway.ErrUnauthorized)

// WebhookReceiver processes incoming Telegram webhook payloads.
// It implements gateway.WebhookHandler.
type WebhookReceiver struct {
	in     *inbound
	secret string
}

// newWebhookReceiver creates a new WebhookReceiver.
func newWebhookReceiver(in *inbound, secret string) *WebhookReceiver {
	return &WebhookReceiver{in: in, secret: secret}
}

// HandleWebhook processes a webhook payload from the gateway dispatcher.
// It validates the Telegram secret token header, parses the update and hands
// it to the shared inbound path.
func (w *WebhookReceiver) HandleWebhook(ctx context.Context, _ string, body []byte, headers http.Header) error {
	if w.secret != "" {
		token := headers.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(w.secret), []byte(token)) != 1 {
			return ErrInvalidSecret
		}
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("telegram: %w: %w", gateway.ErrBadPayload, err)
	}

	return w.in.handle(ctx, &update)
}
