// Package sessiontest provides a behavioural test suite shared by every
// session.Store backend.
package sessiontest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flemzord/ghostmail/internal/session"
	"github.com/flemzord/ghostmail/pkg/mail"
)

// RunStoreTests exercises the session.Store contract against stores built by
// newStore. Each subtest gets a fresh, empty store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) session.Store) {
	t.Helper()
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	sample := func(chatID string) mail.Session {
		return mail.Session{
			ChatID:       chatID,
			EmailAddress: chatID + "@ghost.test",
			EmailToken:   "tok-" + chatID,
			ExpiresAt:    "2024-03-01 10:00:00",
			CreatedAt:    created,
		}
	}

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, session.ErrNotFound) {
			t.Errorf("Get = %v, want ErrNotFound", err)
		}
	})

	t.Run("put then get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		want := sample("100")
		if err := s.Put(ctx, want); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := s.Get(ctx, "100")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.EmailAddress != want.EmailAddress || got.EmailToken != want.EmailToken ||
			got.ExpiresAt != want.ExpiresAt || !got.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("Get = %+v, want %+v", got, want)
		}
	})

	t.Run("put replaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		first := sample("7")
		second := sample("7")
		second.EmailAddress = "changed@ghost.test"
		if err := s.Put(ctx, first); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := s.Put(ctx, second); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := s.Get(ctx, "7")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.EmailAddress != "changed@ghost.test" {
			t.Errorf("EmailAddress = %q, want the replacement", got.EmailAddress)
		}
		if n, _ := s.Len(ctx); n != 1 {
			t.Errorf("Len = %d, want 1", n)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.Put(ctx, sample("1")); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if err := s.Delete(ctx, "1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, "1"); !errors.Is(err, session.ErrNotFound) {
			t.Errorf("Get after Delete = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, "1"); err != nil {
			t.Errorf("deleting a missing session should not fail: %v", err)
		}
	})

	t.Run("list sorted", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, id := range []string{"3", "1", "2"} {
			if err := s.Put(ctx, sample(id)); err != nil {
				t.Fatalf("Put: %v", err)
			}
		}
		all, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 3 || all[0].ChatID != "1" || all[1].ChatID != "2" || all[2].ChatID != "3" {
			t.Errorf("List = %+v, want chats 1,2,3", all)
		}
		if n, err := s.Len(ctx); err != nil || n != 3 {
			t.Errorf("Len = (%d, %v), want 3", n, err)
		}
	})

	t.Run("expire", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		old := sample("old")
		fresh := sample("fresh")
		fresh.ExpiresAt = "2024-03-02 10:00:00"
		for _, sess := range []mail.Session{old, fresh} {
			if err := s.Put(ctx, sess); err != nil {
				t.Fatalf("Put: %v", err)
			}
		}

		expired, err := session.Expire(ctx, s, created.Add(2*time.Hour), 0)
		if err != nil {
			t.Fatalf("Expire: %v", err)
		}
		if len(expired) != 1 || expired[0].ChatID != "old" {
			t.Errorf("Expire = %+v, want only the old session", expired)
		}
		if _, err := s.Get(ctx, "fresh"); err != nil {
			t.Errorf("fresh session should survive: %v", err)
		}
	})
}
