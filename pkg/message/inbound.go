package message

import (
	"encoding/json"
	"strings"
	"time"
)

// Event is something a user did in a chat: sent a command, pressed an inline
// button, or typed plain text.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Kind      Kind      `json:"kind"`
	Sender    Sender    `json:"sender"`
	Chat      Chat      `json:"chat"`

	// Text is the raw message text for command and text events.
	Text string `json:"text,omitempty"`
	// Command is the lower-cased command name without the leading slash
	// or bot suffix ("create" for "/create@GhostMailBot").
	Command string `json:"command,omitempty"`
	// Args holds the whitespace-separated command arguments.
	Args []string `json:"args,omitempty"`

	// CallbackID identifies the button press so the channel can acknowledge it.
	CallbackID string `json:"callback_id,omitempty"`
	// Data is the action identifier carried by the pressed button.
	Data string `json:"data,omitempty"`

	Raw json.RawMessage `json:"raw,omitempty"`
}

// IsGroup reports whether the event was sent in a group chat.
func (e *Event) IsGroup() bool {
	return e.Chat.IsGroup()
}

// IsDirectMessage reports whether the event is from a direct message.
func (e *Event) IsDirectMessage() bool {
	return e.Chat.IsDirectMessage()
}

// NewTextEvent builds a command or text event from a chat message. Text that
// starts with "/" becomes a command event.
func NewTextEvent(text string) Event {
	name, args, ok := ParseCommand(text)
	if !ok {
		return Event{Kind: KindText, Text: text}
	}
	return Event{Kind: KindCommand, Text: text, Command: name, Args: args}
}

// NewCallbackEvent builds a button-press event.
func NewCallbackEvent(callbackID, data string) Event {
	return Event{Kind: KindCallback, CallbackID: callbackID, Data: data}
}

// ParseCommand splits "/name@bot arg1 arg2" into its name and arguments.
// It reports false when text is not a command.
func ParseCommand(text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	name, _, _ = strings.Cut(fields[0], "@")
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}
