package channel

import (
	"context"
	"sync"

	"github.com/flemzord/ghostmail/internal/core"
	"github.com/flemzord/ghostmail/pkg/message"
)

// SentText is one call recorded by MockSender.
type SentText struct {
	ChatID string
	Text   string
	Opts   SendOptions
}

// MockSender is a test double for Sender. It records every call, successful
// or not.
type MockSender struct {
	mu   sync.Mutex
	sent []SentText

	// SendFunc, if set, decides the result of each call. call is the
	// zero-based index of the call.
	SendFunc func(call int, chatID, text string, opts SendOptions) error
}

var _ Sender = (*MockSender)(nil)

// SendText records the call and delegates to SendFunc when set.
func (m *MockSender) SendText(_ context.Context, chatID, text string, opts SendOptions) error {
	m.mu.Lock()
	call := len(m.sent)
	m.sent = append(m.sent, SentText{ChatID: chatID, Text: text, Opts: opts})
	fn := m.SendFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(call, chatID, text, opts)
	}
	return nil
}

// Sent returns a copy of all recorded calls.
func (m *MockSender) Sent() []SentText {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]SentText, len(m.sent))
	copy(cp, m.sent)
	return cp
}

// Reset clears recorded calls.
func (m *MockSender) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

// MockChannel is a test double that implements Channel. It records sent texts
// and allows simulating inbound events via Simulate.
type MockChannel struct {
	MockSender

	name      string
	allowList *AllowList

	inboxMu sync.Mutex
	inbox   func(ev message.Event) error
}

var _ Channel = (*MockChannel)(nil)

// NewMockChannel creates a MockChannel with the given name and an optional
// allow-list. Pass nil for allowList to deny all events.
func NewMockChannel(name string, allowList *AllowList) *MockChannel {
	return &MockChannel{
		name:      name,
		allowList: allowList,
	}
}

// ModuleInfo implements core.Module.
func (m *MockChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID: core.ModuleID("channel." + m.name),
		New: func() core.Module {
			return NewMockChannel(m.name, m.allowList)
		},
	}
}

// SetInbox stores the inbox callback provided by the bot.
func (m *MockChannel) SetInbox(fn func(ev message.Event) error) {
	m.inboxMu.Lock()
	defer m.inboxMu.Unlock()
	m.inbox = fn
}

// Simulate pushes an inbound event through the allow-list and into the
// inbox. It returns ErrDenied if the sender is not allowed, and ErrNoInbox if
// SetInbox has not been called.
func (m *MockChannel) Simulate(ev message.Event) error {
	m.inboxMu.Lock()
	inbox := m.inbox
	m.inboxMu.Unlock()

	if !m.allowList.IsAllowed(ev) {
		return ErrDenied
	}
	if inbox == nil {
		return ErrNoInbox
	}

	ev.Channel = m.name
	return inbox(ev)
}
