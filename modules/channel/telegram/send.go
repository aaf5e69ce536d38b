package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/flemzord/ghostmail/internal/channel"
)

// maxCallbackData is the Bot API limit on callback_data, in bytes.
const maxCallbackData = 64

const parseModeMarkdownV2 = "MarkdownV2"

// sendText delivers one chunk of text. Formatting and keyboard decisions are
// made here; chunking is the pipeline's job.
func sendText(ctx context.Context, client *Client, logger *slog.Logger, chatID, text string, opts channel.SendOptions) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat ID %q: %w", chatID, err)
	}

	req := SendMessageRequest{
		ChatID:                id,
		Text:                  text,
		DisableWebPagePreview: true,
		ReplyMarkup:           buildKeyboard(logger, opts.Actions),
	}
	if opts.Formatted {
		req.ParseMode = parseModeMarkdownV2
	}

	if _, err := client.SendMessage(ctx, req); err != nil {
		return err
	}
	return nil
}

// buildKeyboard converts action rows into an inline keyboard. Buttons whose
// identifier exceeds the callback_data limit are dropped; rows left empty
// are removed. It returns nil when no button survives.
func buildKeyboard(logger *slog.Logger, rows [][]channel.Action) *InlineKeyboardMarkup {
	var keyboard [][]InlineKeyboardButton
	for _, row := range rows {
		var buttons []InlineKeyboardButton
		for _, a := range row {
			if len(a.ID) > maxCallbackData {
				if logger != nil {
					logger.Warn("telegram: dropping button with oversized callback data",
						"label", a.Label,
						"bytes", len(a.ID),
					)
				}
				continue
			}
			buttons = append(buttons, InlineKeyboardButton{Text: a.Label, CallbackData: a.ID})
		}
		if len(buttons) > 0 {
			keyboard = append(keyboard, buttons)
		}
	}
	if len(keyboard) == 0 {
		return nil
	}
	return &InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
