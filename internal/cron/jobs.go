package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/ghostmail/internal/session"
	"github.com/flemzord/ghostmail/pkg/mail"
)

// ExpiryNotifier tells a user their address is gone.
type ExpiryNotifier interface {
	NotifyExpired(ctx context.Context, s mail.Session) error
}

// SessionExpiryJob removes sessions whose address has lapsed and notifies
// each affected chat. The expiry is the provider's deleted_in when it
// parses, otherwise creation time plus TTL.
type SessionExpiryJob struct {
	Store        session.Store
	TTL          time.Duration
	Notifier     ExpiryNotifier // optional
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/5 * * * *"

	// OnSweep receives the session count left after each run (optional).
	OnSweep func(remaining int)

	// Now is injectable for testing. Defaults to time.Now.
	Now func() time.Time
}

var _ Job = (*SessionExpiryJob)(nil)

// Name implements Job.
func (j *SessionExpiryJob) Name() string { return "session-expiry" }

// Schedule implements Job.
func (j *SessionExpiryJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run expires lapsed sessions. A failed notification is logged and does
// not stop the sweep.
func (j *SessionExpiryJob) Run(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}

	expired, err := session.Expire(ctx, j.Store, now(), j.TTL)
	for _, s := range expired {
		logger.Info("cron: session expired", "chat_id", s.ChatID, "email", s.EmailAddress)
		if j.Notifier == nil {
			continue
		}
		if nerr := j.Notifier.NotifyExpired(ctx, s); nerr != nil {
			logger.Warn("cron: expiry notice failed", "chat_id", s.ChatID, "error", nerr)
		}
	}
	if err != nil {
		return fmt.Errorf("cron: session expiry: %w", err)
	}

	if j.OnSweep != nil {
		if n, err := j.Store.Len(ctx); err == nil {
			j.OnSweep(n)
		}
	}
	return nil
}

// Pruner drops idle per-key state.
type Pruner interface {
	Prune() int
}

// RateLimitPruneJob drops idle rate-limit buckets: chats that went quiet
// and admin clients that stopped failing to authenticate.
type RateLimitPruneJob struct {
	Limiters     []Pruner
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/10 * * * *"
}

var _ Job = (*RateLimitPruneJob)(nil)

// Name implements Job.
func (j *RateLimitPruneJob) Name() string { return "ratelimit-prune" }

// Schedule implements Job.
func (j *RateLimitPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/10 * * * *"
}

// Run prunes idle buckets.
func (j *RateLimitPruneJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := 0
	for _, l := range j.Limiters {
		n += l.Prune()
	}
	if n > 0 && j.Logger != nil {
		j.Logger.Debug("cron: pruned rate-limit buckets", "count", n)
	}
	return nil
}
