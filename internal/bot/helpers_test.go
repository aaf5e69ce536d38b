package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/flemzord/ghostmail/internal/provider/providertest"
	"github.com/flemzord/ghostmail/internal/security/securitytest"
	"github.com/flemzord/ghostmail/internal/session"
	"github.com/flemzord/ghostmail/pkg/mail"
	"github.com/flemzord/ghostmail/pkg/message"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeObserver struct {
	mu       sync.Mutex
	events   []string
	sessions int
}

func (o *fakeObserver) ObserveEvent(kind, name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, kind+"/"+name)
}

func (o *fakeObserver) SetSessions(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions = n
}

func (o *fakeObserver) snapshot() ([]string, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...), o.sessions
}

type harness struct {
	bot      *Bot
	channel  *channel.MockChannel
	store    *session.MemoryStore
	observer *fakeObserver
	provider *providertest.MockProvider
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	h := &harness{
		channel:  channel.NewMockChannel("telegram", nil),
		store:    session.NewMemoryStore(0),
		observer: &fakeObserver{},
		provider: &providertest.MockProvider{},
	}
	dispatcher := channel.NewDispatcher()
	if err := dispatcher.Register("telegram", h.channel); err != nil {
		t.Fatalf("Register: %v", err)
	}

	b, err := New(cfg, Deps{
		Provider: h.provider,
		Sessions: h.store,
		Senders:  dispatcher,
		Limiter:  securitytest.NewUnlimited(),
		Observer: h.observer,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	h.bot = b
	return h
}

// run handles ev synchronously on the calling goroutine.
func (h *harness) run(ev message.Event) {
	ev.Channel = "telegram"
	if ev.Chat.ID == "" {
		ev.Chat = message.Chat{ID: "100", Type: message.ChatDM}
	}
	h.bot.handle(context.Background(), item{ev: ev})
}

func (h *harness) seed(t *testing.T, chatID, email, token string) {
	t.Helper()
	err := h.store.Put(context.Background(), mail.Session{
		ChatID:       chatID,
		EmailAddress: email,
		EmailToken:   token,
		CreatedAt:    testNow,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func command(text string) message.Event {
	return message.NewTextEvent(text)
}

func callback(data string) message.Event {
	return message.NewCallbackEvent("cb", data)
}

func hasAction(rows [][]channel.Action, id string) bool {
	for _, row := range rows {
		for _, a := range row {
			if a.ID == id {
				return true
			}
		}
	}
	return false
}
