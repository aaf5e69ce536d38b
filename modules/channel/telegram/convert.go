package telegram

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/flemzord/ghostmail/pkg/message"
)

var (
	errUnsupportedUpdate = errors.New("unsupported update type")
	errEmptyMessage      = errors.New("message has no text")
	errOtherBot          = errors.New("command addressed to another bot")
	errNoSender          = errors.New("message has no sender")
)

// convertUpdate turns a Telegram update into a bot event. Updates the bot
// cannot act on return an error describing why they were skipped.
func convertUpdate(update *Update, botUsername, channelName string) (message.Event, error) {
	switch {
	case update.Message != nil:
		return convertMessage(update.Message, botUsername, channelName)
	case update.CallbackQuery != nil:
		return convertCallback(update.CallbackQuery, channelName)
	default:
		return message.Event{}, errUnsupportedUpdate
	}
}

func convertMessage(msg *Message, botUsername, channelName string) (message.Event, error) {
	if msg.From == nil {
		return message.Event{}, errNoSender
	}
	if strings.TrimSpace(msg.Text) == "" {
		return message.Event{}, errEmptyMessage
	}
	if target := commandTarget(msg.Text); target != "" && !strings.EqualFold(target, botUsername) {
		return message.Event{}, errOtherBot
	}

	ev := message.NewTextEvent(msg.Text)
	ev.ID = strconv.Itoa(msg.MessageID)
	ev.Timestamp = time.Unix(int64(msg.Date), 0).UTC()
	ev.Channel = channelName
	ev.Sender = convertUser(msg.From)
	ev.Chat = convertChat(msg.Chat)
	return ev, nil
}

func convertCallback(cq *CallbackQuery, channelName string) (message.Event, error) {
	ev := message.NewCallbackEvent(cq.ID, cq.Data)
	ev.ID = cq.ID
	ev.Timestamp = time.Now().UTC()
	ev.Channel = channelName
	ev.Sender = convertUser(&cq.From)
	if cq.Message != nil {
		ev.Chat = convertChat(cq.Message.Chat)
	} else {
		// Inline-mode messages carry no chat; answer the presser directly.
		ev.Chat = message.Chat{ID: strconv.FormatInt(cq.From.ID, 10), Type: message.ChatDM}
	}
	return ev, nil
}

// commandTarget returns the bot name of a "/cmd@bot" command, or "".
func commandTarget(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	first, _, _ := strings.Cut(text, " ")
	_, target, _ := strings.Cut(first, "@")
	return target
}

func convertUser(u *User) message.Sender {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	return message.Sender{
		ID:          strconv.FormatInt(u.ID, 10),
		Username:    u.Username,
		DisplayName: name,
	}
}

func convertChat(c Chat) message.Chat {
	chat := message.Chat{ID: strconv.FormatInt(c.ID, 10), Title: c.Title}
	switch c.Type {
	case "private":
		chat.Type = message.ChatDM
	case "channel":
		chat.Type = message.ChatBroadcast
	default:
		chat.Type = message.ChatGroup
	}
	return chat
}
