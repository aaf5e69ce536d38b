package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/ghostmail/internal/provider"
	"github.com/flemzord/ghostmail/internal/session"
	"github.com/flemzord/ghostmail/pkg/mail"
)

type fakeBackend struct {
	status provider.Status
}

func (f fakeBackend) Status() provider.Status { return f.status }

type fakeChannels []string

func (f fakeChannels) Channels() []string { return f }

type fakeJobs struct {
	mu    sync.Mutex
	names []string
	err   error
	ran   []string
}

func (f *fakeJobs) Jobs() []string { return f.names }

func (f *fakeJobs) RunNow(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, name)
	return f.err
}

// seededStore returns a memory store holding one session per chat ID.
func seededStore(t *testing.T, chatIDs ...string) *session.MemoryStore {
	t.Helper()
	store := session.NewMemoryStore(0)
	for _, id := range chatIDs {
		err := store.Put(context.Background(), mail.Session{
			ChatID:       id,
			EmailAddress: "user" + id + "@mail.test",
			EmailToken:   "secret-token-" + id,
			CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	return store
}
