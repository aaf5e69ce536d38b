package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/ghostmail/pkg/mail"
)

// Observer receives one callback per provider request.
type Observer interface {
	ObserveProviderRequest(op string, err error, d time.Duration)
}

// GuardOption configures optional Guard parameters.
type GuardOption func(*Guard)

// WithLogger sets the logger used for health state transitions.
func WithLogger(l *slog.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithObserver attaches a request observer (typically the metrics collectors).
func WithObserver(o Observer) GuardOption {
	return func(g *Guard) { g.observer = o }
}

// Guard wraps a Provider with a breaker. While the backend is backing off
// or down, calls fail fast with ErrProviderDown instead of hitting the
// network. Guard itself implements Provider.
type Guard struct {
	inner    Provider
	name     string
	health   *breaker
	logger   *slog.Logger
	observer Observer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ Provider = (*Guard)(nil)

// NewGuard wraps inner. name labels the backend in health reports.
func NewGuard(name string, inner Provider, cfg HealthConfig, opts ...GuardOption) *Guard {
	g := &Guard{
		inner:  inner,
		name:   name,
		health: newBreaker(cfg),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.health.onChange = func(from, to breakerState) {
		g.logger.Warn("provider health changed", "provider", g.name, "from", from.String(), "to", to.String())
	}
	return g
}

// Start launches the background health probe. It is a no-op when the
// wrapped provider does not implement HealthChecker or the probe is
// already running.
func (g *Guard) Start(ctx context.Context) {
	checker, ok := g.inner.(HealthChecker)
	if !ok {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		return
	}

	ctx, g.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	g.done = done
	go func() {
		defer close(done)
		g.runHealthChecks(ctx, checker)
	}()
}

// Stop halts the background probe and waits for it to exit.
func (g *Guard) Stop() {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel, g.done = nil, nil
	g.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Status returns a point-in-time health report.
func (g *Guard) Status() Status {
	return g.health.Status(g.name)
}

func (g *Guard) runHealthChecks(ctx context.Context, checker HealthChecker) {
	ticker := time.NewTicker(g.health.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !g.health.NeedsProbe() {
				continue
			}
			if err := checker.HealthCheck(ctx); err == nil {
				g.health.Success()
			}
		}
	}
}

// Domains implements Provider.
func (g *Guard) Domains(ctx context.Context) ([]string, error) {
	return guarded(ctx, g, "domains", g.inner.Domains)
}

// CreateEmail implements Provider.
func (g *Guard) CreateEmail(ctx context.Context) (mail.Account, error) {
	return guarded(ctx, g, "create", g.inner.CreateEmail)
}

// ChangeEmail implements Provider.
func (g *Guard) ChangeEmail(ctx context.Context, token, username, domain string) (mail.Account, error) {
	return guarded(ctx, g, "change", func(ctx context.Context) (mail.Account, error) {
		return g.inner.ChangeEmail(ctx, token, username, domain)
	})
}

// DeleteEmail implements Provider.
func (g *Guard) DeleteEmail(ctx context.Context, token string) error {
	_, err := guarded(ctx, g, "delete_email", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.inner.DeleteEmail(ctx, token)
	})
	return err
}

// Messages implements Provider.
func (g *Guard) Messages(ctx context.Context, token string) ([]mail.RawMessage, error) {
	return guarded(ctx, g, "messages", func(ctx context.Context) ([]mail.RawMessage, error) {
		return g.inner.Messages(ctx, token)
	})
}

// Message implements Provider.
func (g *Guard) Message(ctx context.Context, id string) (mail.RawMessage, error) {
	return guarded(ctx, g, "message", func(ctx context.Context) (mail.RawMessage, error) {
		return g.inner.Message(ctx, id)
	})
}

// DeleteMessage implements Provider.
func (g *Guard) DeleteMessage(ctx context.Context, id string) error {
	_, err := guarded(ctx, g, "delete_message", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.inner.DeleteMessage(ctx, id)
	})
	return err
}

func guarded[T any](ctx context.Context, g *Guard, op string, fn func(context.Context) (T, error)) (T, error) {
	if !g.health.Allow() {
		var zero T
		err := fmt.Errorf("provider: %s: %s is backing off: %w", op, g.name, ErrProviderDown)
		g.observe(op, err, 0)
		return zero, err
	}

	start := time.Now()
	v, err := fn(ctx)
	g.observe(op, err, time.Since(start))

	switch {
	case err == nil:
		g.health.Success()
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// The caller gave up; says nothing about the backend.
	case IsRetryable(err):
		g.health.Failure()
	default:
		// Rejections like not-found prove the backend is answering.
		g.health.Success()
	}
	return v, err
}

func (g *Guard) observe(op string, err error, d time.Duration) {
	if g.observer != nil {
		g.observer.ObserveProviderRequest(op, err, d)
	}
}
