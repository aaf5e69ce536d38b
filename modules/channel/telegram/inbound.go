package telegram

import (
	"context"
	"log/slog"

	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/flemzord/ghostmail/pkg/message"
)

// inbound is the path shared by the poller and the webhook receiver: convert
// the update, check access, acknowledge button presses, push to the inbox.
type inbound struct {
	client      *Client
	inbox       func(message.Event) error
	allowList   *channel.AllowList // nil means open access
	logger      *slog.Logger
	botUsername string
	channelName string
}

func (in *inbound) handle(ctx context.Context, update *Update) error {
	ev, err := convertUpdate(update, in.botUsername, in.channelName)
	if err != nil {
		in.logger.Debug("skipping update", "update_id", update.UpdateID, "reason", err)
		return nil
	}

	if in.allowList != nil && !in.allowList.IsAllowed(ev) {
		in.logger.Debug("update denied by allow list",
			"update_id", update.UpdateID,
			"sender", ev.Sender.ID,
			"chat", ev.Chat.ID,
		)
		return nil
	}

	if ev.Kind == message.KindCallback && in.client != nil {
		if err := in.client.AnswerCallbackQuery(ctx, AnswerCallbackQueryRequest{CallbackQueryID: ev.CallbackID}); err != nil {
			in.logger.Warn("answerCallbackQuery failed", "update_id", update.UpdateID, "error", err)
		}
	}

	return in.inbox(ev)
}
