package session

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/flemzord/ghostmail/pkg/mail"
)

// ErrFull is returned by Put when a bounded store has no room for a new chat.
var ErrFull = errors.New("session: store full")

// MemoryStore is a concurrency-safe, in-memory Store. Sessions are lost on
// restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]mail.Session

	// maxSessions limits the number of stored sessions. Zero means unlimited.
	maxSessions int
}

// NewMemoryStore creates an empty MemoryStore. maxSessions <= 0 means
// unlimited.
func NewMemoryStore(maxSessions int) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]mail.Session),
		maxSessions: maxSessions,
	}
}

var _ Store = (*MemoryStore)(nil)

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, chatID string) (mail.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[chatID]
	if !ok {
		return mail.Session{}, ErrNotFound
	}
	return s, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, s mail.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ChatID]; !exists && m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return ErrFull
	}
	m.sessions[s.ChatID] = s
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]mail.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]mail.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b mail.Session) int {
		return cmp.Compare(a.ChatID, b.ChatID)
	})
	return out, nil
}

// Len implements Store.
func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}
