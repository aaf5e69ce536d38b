package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/flemzord/ghostmail/internal/core"
	"github.com/flemzord/ghostmail/internal/cron"
	"github.com/flemzord/ghostmail/internal/metrics"
	"github.com/flemzord/ghostmail/internal/provider"
	"github.com/flemzord/ghostmail/internal/security"
	"github.com/flemzord/ghostmail/internal/session"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// StatusReporter reports the health of the temp-mail backend.
// *provider.Guard satisfies it.
type StatusReporter interface {
	Status() provider.Status
}

// ChannelLister lists the running chat channels. *channel.Dispatcher
// satisfies it.
type ChannelLister interface {
	Channels() []string
}

// JobRunner exposes the background scheduler. *cron.Scheduler satisfies it.
type JobRunner interface {
	Jobs() []string
	RunNow(ctx context.Context, name string) error
}

// Gateway is the HTTP gateway module. It exposes health, metrics, admin, and
// webhook endpoints. It is a leaf module: nothing imports it.
type Gateway struct {
	config     Config
	appCtx     *core.AppContext
	logger     *slog.Logger
	server     *http.Server
	dispatcher *WebhookDispatcher
	authLimit  *security.RateLimiter
	startedAt  time.Time

	// Resolved lazily at Start() via service registry.
	sessions session.Store
	backend  StatusReporter
	channels ChannelLister
	jobs     JobRunner
	metrics  *metrics.Metrics
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.dispatcher = NewWebhookDispatcher(g.logger)
	g.authLimit = security.NewRateLimiter(g.config.AuthRateLimit)

	ctx.RegisterService(WebhookDispatcherService, g.dispatcher)
	ctx.RegisterService(AuthLimiterService, g.authLimit)
	if r, ok := core.ServiceAs[*security.Redactor](ctx, security.RedactorService); ok {
		r.AddLiteral(g.config.Auth.BearerToken)
		r.AddLiteral(g.config.Auth.BasicPass)
	}
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolveServices()
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// resolveServices binds optional collaborators. Fields already set are
// kept; missing services degrade the matching endpoints.
func (g *Gateway) resolveServices() {
	if g.appCtx == nil {
		return
	}
	if g.sessions == nil {
		g.sessions, _ = core.ServiceAs[session.Store](g.appCtx, session.ServiceName)
	}
	if g.backend == nil {
		g.backend, _ = core.ServiceAs[StatusReporter](g.appCtx, provider.ServiceName)
	}
	if g.channels == nil {
		g.channels, _ = core.ServiceAs[ChannelLister](g.appCtx, channel.DispatcherService)
	}
	if g.jobs == nil {
		g.jobs, _ = core.ServiceAs[JobRunner](g.appCtx, cron.ServiceName)
	}
	if g.metrics == nil {
		g.metrics, _ = core.ServiceAs[*metrics.Metrics](g.appCtx, metrics.ServiceName)
	}
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
