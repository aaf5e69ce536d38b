package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/flemzord/ghostmail/internal/provider"
	"github.com/flemzord/ghostmail/internal/render"
	"github.com/flemzord/ghostmail/internal/security"
	"github.com/flemzord/ghostmail/internal/session"
	"github.com/flemzord/ghostmail/pkg/mail"
	"github.com/flemzord/ghostmail/pkg/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// SenderResolver finds the sender for a channel name.
// *channel.Dispatcher satisfies it.
type SenderResolver interface {
	Sender(name string) (channel.Sender, error)
}

// Observer receives bot activity. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveEvent(kind, name string)
	SetSessions(n int)
}

// Deps are the collaborators a Bot needs. Provider, Sessions and Senders
// are required.
type Deps struct {
	Provider provider.Provider
	Sessions session.Store
	Senders  SenderResolver

	// Limiter, if non-nil, caps inbound events per chat.
	Limiter *security.RateLimiter
	// Observer and Recorder are optional.
	Observer Observer
	Recorder channel.Recorder
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Bot handles chat events. Submit is the inbox channels push events to.
type Bot struct {
	cfg      Config
	provider provider.Provider
	sessions session.Store
	senders  SenderResolver
	limiter  *security.RateLimiter
	observer Observer
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	renderer *render.Renderer
	pipeline *channel.Pipeline

	lanes *lanes
	pool  *workerPool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Bot. Zero fields in cfg take the defaults.
func New(cfg Config, deps Deps) (*Bot, error) {
	cfg.Defaults()

	if deps.Provider == nil {
		return nil, ErrNoProvider
	}
	if deps.Sessions == nil {
		return nil, ErrNoSessions
	}
	if deps.Senders == nil {
		return nil, ErrNoSenders
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Bot{
		cfg:      cfg,
		provider: deps.Provider,
		sessions: deps.Sessions,
		senders:  deps.Senders,
		limiter:  deps.Limiter,
		observer: deps.Observer,
		logger:   deps.Logger,
		tracer:   otel.Tracer("github.com/flemzord/ghostmail/internal/bot"),
		now:      deps.Now,
		renderer: render.New(render.Options{
			PageSize:      cfg.PageSize,
			MaxActions:    cfg.MaxActions,
			MaxBodyLength: cfg.MaxBodyLength,
		}),
		pipeline: channel.NewPipeline(channel.PipelineConfig{
			Pacing:      cfg.Pacing,
			SendTimeout: cfg.SendTimeout,
			Logger:      deps.Logger,
			Recorder:    deps.Recorder,
		}),
		lanes: newLanes(cfg.QueueSize),
		pool:  newWorkerPool(cfg.Workers),
	}, nil
}

// Config returns the effective configuration, defaults applied.
func (b *Bot) Config() Config {
	return b.cfg
}

// Start launches the worker pool.
func (b *Bot) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.pool.start(ctx, b.lanes.ready, b.drain)
	b.logger.Info("bot: started", "workers", b.cfg.Workers, "queue_size", b.cfg.QueueSize)
}

// Stop stops accepting events and waits for queued ones to finish. If ctx
// ends first, in-flight handlers are cancelled.
func (b *Bot) Stop(ctx context.Context) error {
	b.lanes.close()

	done := make(chan struct{})
	go func() {
		b.pool.wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()
	<-done
	return err
}

// Pending returns the number of queued events not yet handled.
func (b *Bot) Pending() int {
	return b.lanes.len()
}

// Submit queues an event. Events from a chat over its rate limit are
// dropped; the first drop in a window queues a notice instead.
func (b *Bot) Submit(ev message.Event) error {
	key := laneKey(ev)

	if b.limiter != nil {
		if err := b.limiter.Allow(key); err != nil {
			b.observer.ObserveEvent("dropped", "rate_limited")
			b.logger.Debug("bot: event rate limited", "channel", ev.Channel, "chat_id", ev.Chat.ID)
			if !b.limiter.Notify(key) {
				return nil
			}
			return b.enqueue(key, item{ev: ev, limited: true})
		}
	}

	return b.enqueue(key, item{ev: ev})
}

func (b *Bot) enqueue(key string, it item) error {
	err := b.lanes.push(key, it)
	if errors.Is(err, ErrQueueFull) {
		b.observer.ObserveEvent("dropped", "queue_full")
		b.logger.Warn("bot: queue full, event dropped",
			"channel", it.ev.Channel,
			"chat_id", it.ev.Chat.ID,
		)
	}
	return err
}

func (b *Bot) drain(ctx context.Context, key string) {
	for {
		it, ok := b.lanes.next(key)
		if !ok {
			return
		}
		b.handle(ctx, it)
	}
}

func (b *Bot) handle(ctx context.Context, it item) {
	ev := it.ev
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bot: handler panicked",
				"channel", ev.Channel,
				"chat_id", ev.Chat.ID,
				"panic", fmt.Sprint(r),
			)
		}
	}()

	sender, err := b.senders.Sender(ev.Channel)
	if err != nil {
		b.logger.Error("bot: no sender for event", "channel", ev.Channel, "error", err)
		return
	}
	t := &turn{bot: b, sender: sender, ev: ev, chatID: ev.Chat.ID}

	if it.limited {
		t.notice(ctx, rateLimitNotice)
		return
	}

	name := eventName(ev)
	b.observer.ObserveEvent(string(ev.Kind), name)

	ctx, span := b.tracer.Start(ctx, "bot.handle", trace.WithAttributes(
		attrKind.String(string(ev.Kind)),
		attrName.String(name),
		attrChannel.String(ev.Channel),
	))
	defer span.End()

	t.dispatch(ctx, name)
}

// NotifyExpired tells a chat its address was removed by the sweeper.
func (b *Bot) NotifyExpired(ctx context.Context, s mail.Session) error {
	sender, err := b.senders.Sender(b.cfg.NotifyChannel)
	if err != nil {
		return fmt.Errorf("bot: notify expired: %w", err)
	}
	text := fmt.Sprintf(expiredFormat, render.EscapeMarkdownV2(s.EmailAddress))
	outcomes := b.pipeline.Deliver(ctx, sender, s.ChatID, channel.SplitIntoChunks(text, b.cfg.ChunkSize), createRow())
	if n := len(outcomes); n == 0 || outcomes[n-1] == channel.Failed {
		return fmt.Errorf("bot: notify expired: delivery to %s failed", s.ChatID)
	}
	return nil
}

func (b *Bot) refreshSessions(ctx context.Context) {
	n, err := b.sessions.Len(ctx)
	if err != nil {
		b.logger.Warn("bot: counting sessions failed", "error", err)
		return
	}
	b.observer.SetSessions(n)
}

func laneKey(ev message.Event) string {
	return ev.Channel + ":" + ev.Chat.ID
}

type nopObserver struct{}

func (nopObserver) ObserveEvent(string, string) {}
func (nopObserver) SetSessions(int)             {}
