package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flemzord/ghostmail/internal/session"
	"github.com/flemzord/ghostmail/pkg/mail"
)

// Store implements session.Store on Redis. Each session is a JSON string
// under {prefix}session:{chat}; {prefix}sessions is the set of chat IDs.
type Store struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	grace  time.Duration
	now    func() time.Time
}

var _ session.Store = (*Store)(nil)

// NewStore wraps an existing client.
func NewStore(rdb goredis.UniversalClient, cfg Config) *Store {
	cfg.defaults()
	return &Store{
		rdb:    rdb,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
		grace:  cfg.Grace,
		now:    time.Now,
	}
}

func (s *Store) sessionKey(chatID string) string {
	return s.prefix + "session:" + chatID
}

func (s *Store) indexKey() string {
	return s.prefix + "sessions"
}

// keyTTL returns how long Redis keeps the key: until the session expiry plus
// the grace period, never less than the grace period.
func (s *Store) keyTTL(sess mail.Session) time.Duration {
	exp, ok := sess.Expiry(s.ttl)
	if !ok {
		return 0
	}
	ttl := exp.Sub(s.now()) + s.grace
	if ttl < s.grace {
		ttl = s.grace
	}
	return ttl
}

// Get implements session.Store.
func (s *Store) Get(ctx context.Context, chatID string) (mail.Session, error) {
	raw, err := s.rdb.Get(ctx, s.sessionKey(chatID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return mail.Session{}, session.ErrNotFound
	}
	if err != nil {
		return mail.Session{}, fmt.Errorf("redis: get session %s: %w", chatID, err)
	}

	var sess mail.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return mail.Session{}, fmt.Errorf("redis: decode session %s: %w", chatID, err)
	}
	return sess, nil
}

// Put implements session.Store.
func (s *Store) Put(ctx context.Context, sess mail.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis: encode session %s: %w", sess.ChatID, err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(sess.ChatID), raw, s.keyTTL(sess))
		pipe.SAdd(ctx, s.indexKey(), sess.ChatID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: put session %s: %w", sess.ChatID, err)
	}
	return nil
}

// Delete implements session.Store.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(chatID))
		pipe.SRem(ctx, s.indexKey(), chatID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete session %s: %w", chatID, err)
	}
	return nil
}

// List implements session.Store. Index entries whose key Redis already
// evicted are pruned from the index.
func (s *Store) List(ctx context.Context) ([]mail.Session, error) {
	ids, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	slices.Sort(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.sessionKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load sessions: %w", err)
	}

	var (
		out   []mail.Session
		stale []any
	)
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var sess mail.Session
		if err := json.Unmarshal([]byte(str), &sess); err != nil {
			return nil, fmt.Errorf("redis: decode session %s: %w", ids[i], err)
		}
		out = append(out, sess)
	}

	if len(stale) > 0 {
		if err := s.rdb.SRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis: prune index: %w", err)
		}
	}
	return out, nil
}

// Len implements session.Store.
func (s *Store) Len(ctx context.Context) (int, error) {
	all, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}
