package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/flemzord/ghostmail/internal/core"
	"github.com/flemzord/ghostmail/internal/gateway"
	"github.com/flemzord/ghostmail/internal/security"
	"github.com/flemzord/ghostmail/pkg/message"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Telegram{})
}

// Compile-time interface guards.
var (
	_ channel.Channel   = (*Telegram)(nil)
	_ core.Configurable = (*Telegram)(nil)
	_ core.Provisioner  = (*Telegram)(nil)
	_ core.Validator    = (*Telegram)(nil)
	_ core.Starter      = (*Telegram)(nil)
	_ core.Stopper      = (*Telegram)(nil)
)

// Telegram is the Bot API channel. Updates arrive through a long-poll loop
// or through the gateway's webhook route, depending on Config.Mode.
type Telegram struct {
	config    Config
	client    *Client
	logger    *slog.Logger
	allowList *channel.AllowList
	inbox     func(message.Event) error
	appCtx    *core.AppContext

	poller   *Poller
	receiver *WebhookReceiver
	webhooks *gateway.WebhookDispatcher
}

// ModuleInfo implements core.Module.
func (t *Telegram) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.telegram",
		New: func() core.Module { return &Telegram{} },
	}
}

// Configure implements core.Configurable.
func (t *Telegram) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (t *Telegram) Provision(ctx *core.AppContext) error {
	t.config.defaults()
	t.appCtx = ctx
	t.logger = ctx.Logger
	if r, ok := core.ServiceAs[*security.Redactor](ctx, security.RedactorService); ok {
		r.AddLiteral(t.config.Token)
		r.AddLiteral(t.config.WebhookSecret)
	}
	t.client = NewClient(t.config.Token, t.config.APIURL)
	if t.config.Access == AccessAllowlist {
		t.allowList = channel.NewAllowList(t.config.AllowUsers, t.config.AllowGroups)
	}
	return nil
}

// Validate implements core.Validator.
func (t *Telegram) Validate() error {
	return t.config.validate()
}

// Name returns the channel name events carry and replies are routed by.
func (t *Telegram) Name() string {
	return t.ModuleInfo().ID.Name()
}

// Start checks the token with getMe and starts receiving updates.
func (t *Telegram) Start() error {
	if t.inbox == nil {
		return fmt.Errorf("telegram: %w, call SetInbox before Start", channel.ErrNoInbox)
	}

	ctx := context.Background()
	user, err := t.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	t.logger.Info("telegram bot authenticated", "id", user.ID, "username", user.Username)

	in := &inbound{
		client:      t.client,
		inbox:       t.inbox,
		allowList:   t.allowList,
		logger:      t.logger,
		botUsername: user.Username,
		channelName: t.Name(),
	}
	if t.config.Mode == ModeWebhook {
		return t.startWebhook(ctx, in)
	}
	return t.startPolling(ctx, in)
}

func (t *Telegram) startPolling(ctx context.Context, in *inbound) error {
	// getUpdates fails with 409 while a webhook is set.
	if err := t.client.DeleteWebhook(ctx); err != nil {
		t.logger.Warn("telegram: deleteWebhook before polling failed", "error", err)
	}
	t.poller = newPoller(in, t.config)
	t.poller.Start()
	t.logger.Info("telegram polling started", "timeout", t.config.PollingTimeout)
	return nil
}

// startWebhook mounts the receiver on the gateway, then points Telegram at
// it. The route is removed again when setWebhook fails.
func (t *Telegram) startWebhook(ctx context.Context, in *inbound) error {
	dispatcher, ok := core.ServiceAs[*gateway.WebhookDispatcher](t.appCtx, gateway.WebhookDispatcherService)
	if !ok {
		return errors.New("telegram: webhook mode needs the gateway module (gateway.http)")
	}
	if t.config.WebhookSecret == "" {
		t.logger.Warn("telegram webhook has no webhook_secret, anyone who knows the URL can post updates")
	}

	receiver := newWebhookReceiver(in, t.config.WebhookSecret)
	if err := dispatcher.Register(t.Name(), receiver); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	if err := t.client.SetWebhook(ctx, SetWebhookRequest{
		URL:            t.config.WebhookURL,
		SecretToken:    t.config.WebhookSecret,
		AllowedUpdates: t.config.AllowedUpdates,
	}); err != nil {
		dispatcher.Unregister(t.Name())
		return fmt.Errorf("telegram: setWebhook failed: %w", err)
	}

	t.receiver, t.webhooks = receiver, dispatcher
	t.logger.Info("telegram webhook configured", "url", t.config.WebhookURL)
	return nil
}

// Stop halts the poller, or unmounts the webhook route and tells Telegram
// to stop posting.
func (t *Telegram) Stop(ctx context.Context) error {
	if t.poller != nil {
		t.poller.Stop()
		t.poller = nil
	}
	if t.webhooks != nil {
		t.webhooks.Unregister(t.Name())
		t.webhooks, t.receiver = nil, nil
		if err := t.client.DeleteWebhook(ctx); err != nil {
			t.logger.Warn("telegram: deleteWebhook on shutdown failed", "error", err)
		}
	}
	return nil
}

// SendText implements channel.Sender.
func (t *Telegram) SendText(ctx context.Context, chatID, text string, opts channel.SendOptions) error {
	return sendText(ctx, t.client, t.logger, chatID, text, opts)
}

// SetInbox implements channel.Channel.
func (t *Telegram) SetInbox(fn func(ev message.Event) error) {
	t.inbox = fn
}
