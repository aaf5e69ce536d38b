// Package channel defines the bridge between messaging platforms and the bot.
// It provides the Channel and Sender interfaces, chunking of long texts,
// the degrade-and-retry delivery pipeline and allow-list filtering.
package channel

import (
	"context"
	"errors"

	"github.com/flemzord/ghostmail/internal/core"
	"github.com/flemzord/ghostmail/pkg/message"
)

// Action is one interactive button: a label shown to the user and the
// identifier delivered back when it is pressed.
type Action struct {
	Label string
	ID    string
}

// SendOptions controls how a text is delivered.
type SendOptions struct {
	// Formatted enables MarkdownV2 interpretation of the text.
	Formatted bool
	// Actions are rows of buttons attached under the text.
	Actions [][]Action
}

// Sender delivers text to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID, text string, opts SendOptions) error
}

// Channel is the bridge between a messaging platform and the bot.
//
// A channel receives events from its platform, checks access, and pushes them
// to the bot via the inbox callback. It delivers replies through SendText.
type Channel interface {
	core.Module
	Sender

	// SetInbox gives the channel a function to push inbound events to the bot.
	// It is called during wiring, before Start().
	SetInbox(fn func(ev message.Event) error)
}

var (
	// ErrNoChannel is returned when a reply names a channel nobody
	// registered.
	ErrNoChannel = errors.New("channel: unknown channel")
	// ErrDuplicateChannel is returned when two channels claim one name.
	ErrDuplicateChannel = errors.New("channel: duplicate channel name")
	// ErrNoInbox means an event arrived before SetInbox was called.
	ErrNoInbox = errors.New("channel: inbox not set")
	// ErrDenied means the allow list rejected the sender.
	ErrDenied = errors.New("channel: sender not allowed")
)
