// Package session defines the per-chat session store and its in-memory
// implementation. Persistent backends live under modules/session.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/ghostmail/pkg/mail"
)

// ServiceName is the AppContext service key a session backend registers under.
const ServiceName = "session.store"

// ErrNotFound is returned by Get when the chat has no session.
var ErrNotFound = errors.New("session: not found")

// Store persists sessions keyed by chat ID.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the session for chatID or ErrNotFound.
	Get(ctx context.Context, chatID string) (mail.Session, error)

	// Put creates or replaces the session for s.ChatID.
	Put(ctx context.Context, s mail.Session) error

	// Delete removes the session for chatID. Deleting a missing session is
	// not an error.
	Delete(ctx context.Context, chatID string) error

	// List returns every stored session ordered by chat ID.
	List(ctx context.Context) ([]mail.Session, error)

	// Len returns the number of stored sessions.
	Len(ctx context.Context) (int, error)
}

// Expire removes every session that has lapsed at now and returns them.
// Sessions without a usable expiry fall back to ttl after creation.
func Expire(ctx context.Context, store Store, now time.Time, ttl time.Duration) ([]mail.Session, error) {
	all, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: listing: %w", err)
	}

	var expired []mail.Session
	for _, s := range all {
		if !s.Expired(now, ttl) {
			continue
		}
		if err := store.Delete(ctx, s.ChatID); err != nil {
			return expired, fmt.Errorf("session: deleting %s: %w", s.ChatID, err)
		}
		expired = append(expired, s)
	}
	return expired, nil
}
