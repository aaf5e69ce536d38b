package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/ghostmail/internal/bot"
	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/flemzord/ghostmail/internal/config"
	"github.com/flemzord/ghostmail/internal/core"
	"github.com/flemzord/ghostmail/internal/cron"
	"github.com/flemzord/ghostmail/internal/gateway"
	"github.com/flemzord/ghostmail/internal/metrics"
	"github.com/flemzord/ghostmail/internal/provider"
	"github.com/flemzord/ghostmail/internal/security"
	"github.com/flemzord/ghostmail/internal/session"
)

// botModule wraps a *bot.Bot so the worker pool participates in the App
// lifecycle.
type botModule struct {
	bot *bot.Bot
}

func (m *botModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "bot"}
}

func (m *botModule) Start() error {
	m.bot.Start(context.Background())
	return nil
}

func (m *botModule) Stop(ctx context.Context) error {
	return m.bot.Stop(ctx)
}

// schedulerModule does the same for the cron scheduler.
type schedulerModule struct {
	*cron.Scheduler
}

func (m *schedulerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

// wireBot discovers channels, the provider and the session store, builds
// the Bot and its scheduler, calls SetInbox on every channel, and appends
// both to the app lifecycle ahead of the channels.
// Must be called after LoadModules and before Start.
func wireBot(
	app *core.App,
	appCtx *core.AppContext,
	cfg *config.Config,
	ids []string,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*bot.Bot, error) {
	backend, ok := core.ServiceAs[provider.Provider](appCtx, provider.ServiceName)
	if !ok {
		return nil, errors.New("app: no provider module registered a provider service")
	}

	store, ok := core.ServiceAs[session.Store](appCtx, session.ServiceName)
	if !ok {
		store = session.NewMemoryStore(0)
		appCtx.RegisterService(session.ServiceName, store)
		logger.Info("app: no session backend configured, sessions are kept in memory")
	}

	// Channels register under the bare name ("telegram") because that is
	// what they set as ev.Channel.
	dispatcher := channel.NewDispatcher()
	var channels []channel.Channel
	for _, id := range ids {
		mod, ok := app.Module(id)
		if !ok {
			continue
		}
		ch, ok := mod.(channel.Channel)
		if !ok {
			continue
		}
		name := core.ModuleID(id).Name()
		if err := dispatcher.Register(name, ch); err != nil {
			return nil, fmt.Errorf("registering channel %s: %w", id, err)
		}
		channels = append(channels, ch)
		logger.Info("app: registered channel", "channel", name)
	}
	if len(channels) == 0 {
		return nil, errors.New("app: at least one channel module is required")
	}
	appCtx.RegisterService(channel.DispatcherService, dispatcher)

	limiter := security.NewRateLimiter(cfg.Bot.RateLimit)

	b, err := bot.New(cfg.Bot, bot.Deps{
		Provider: backend,
		Sessions: store,
		Senders:  dispatcher,
		Limiter:  limiter,
		Observer: m,
		Recorder: m,
		Logger:   logger.With("component", "bot"),
	})
	if err != nil {
		return nil, err
	}
	for _, ch := range channels {
		ch.SetInbox(b.Submit)
	}

	effective := b.Config()
	scheduler := cron.NewScheduler(logger)
	jobs := []cron.Job{
		&cron.SessionExpiryJob{
			Store:        store,
			TTL:          effective.SessionTTL,
			Notifier:     b,
			Logger:       logger,
			ScheduleExpr: effective.SweepSchedule,
			OnSweep:      m.SetSessions,
		},
		&cron.RateLimitPruneJob{
			Limiters: prunable(appCtx, limiter),
			Logger:   logger,
		},
	}
	for _, j := range jobs {
		if err := scheduler.RegisterJob(j); err != nil {
			return nil, err
		}
	}
	appCtx.RegisterService(cron.ServiceName, scheduler)

	// Channels start last and stop first, so the bot drains its queue after
	// the last update has been accepted.
	app.InsertModule("bot", &botModule{bot: b}, "channel")
	app.InsertModule("cron", &schedulerModule{Scheduler: scheduler}, "channel")
	return b, nil
}

// prunable collects the bot's limiter and, when the gateway is loaded, the
// one counting failed admin logins.
func prunable(appCtx *core.AppContext, limiter *security.RateLimiter) []cron.Pruner {
	out := []cron.Pruner{limiter}
	if auth, ok := core.ServiceAs[*security.RateLimiter](appCtx, gateway.AuthLimiterService); ok {
		out = append(out, auth)
	}
	return out
}
