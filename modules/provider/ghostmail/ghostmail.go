// Package ghostmail implements a provider.Provider backed by the GhostMail
// temporary-email HTTP API.
package ghostmail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/ghostmail/internal/core"
	"github.com/flemzord/ghostmail/internal/metrics"
	"github.com/flemzord/ghostmail/internal/provider"
	"github.com/flemzord/ghostmail/internal/security"
)

// Interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

func init() {
	core.RegisterModule(&Module{})
}

// Module wires the API client into the app. It publishes a provider.Guard
// wrapping the client under provider.ServiceName.
type Module struct {
	config Config
	client *Client
	guard  *provider.Guard
}

// ModuleInfo returns the module metadata for registration.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "provider.ghostmail",
		New: func() core.Module { return &Module{} },
	}
}

// Configure decodes the YAML configuration and applies defaults.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("ghostmail: decoding config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision builds the HTTP client and the guard, then registers the
// guard as the app's provider.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()

	// The key travels in every request path; keep it out of logged URLs.
	if r, ok := core.ServiceAs[*security.Redactor](ctx, security.RedactorService); ok {
		r.AddLiteral(m.config.APIKey)
	}

	timeout, err := m.config.parsedTimeout()
	if err != nil {
		return fmt.Errorf("ghostmail: invalid timeout %q: %w", m.config.Timeout, err)
	}
	backoff, err := m.config.parsedBackoff()
	if err != nil {
		return fmt.Errorf("ghostmail: invalid initial_backoff %q: %w", m.config.InitialBackoff, err)
	}

	m.client = NewClient(m.config.BaseURL, m.config.APIKey, &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
			TLSHandshakeTimeout: timeout,
		},
	})
	m.client.maxAttempts = m.config.MaxAttempts
	m.client.backoff = backoff

	opts := []provider.GuardOption{provider.WithLogger(ctx.Logger)}
	if obs, ok := core.ServiceAs[provider.Observer](ctx, metrics.ServiceName); ok {
		opts = append(opts, provider.WithObserver(obs))
	}
	m.guard = provider.NewGuard("ghostmail", m.client, m.config.Health, opts...)

	ctx.RegisterService(provider.ServiceName, m.guard)
	return nil
}

// Validate checks that required configuration fields are set.
func (m *Module) Validate() error {
	var errs []error
	if m.config.APIKey == "" {
		errs = append(errs, errors.New("ghostmail: api_key is required"))
	}
	if m.config.BaseURL == "" {
		errs = append(errs, errors.New("ghostmail: base_url is required"))
	} else {
		u, err := url.Parse(m.config.BaseURL)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("ghostmail: invalid base_url: %w", err))
		case u.Scheme != "http" && u.Scheme != "https":
			errs = append(errs, fmt.Errorf("ghostmail: base_url scheme must be http or https, got %q", u.Scheme))
		case u.Host == "":
			errs = append(errs, errors.New("ghostmail: base_url must include a host"))
		}
	}
	return errors.Join(errs...)
}

// Start launches the guard's background health probe.
func (m *Module) Start() error {
	m.guard.Start(context.Background())
	return nil
}

// Stop halts the health probe.
func (m *Module) Stop(context.Context) error {
	if m.guard != nil {
		m.guard.Stop()
	}
	return nil
}

// Guard returns the guarded provider. Nil before Provision.
func (m *Module) Guard() *provider.Guard {
	return m.guard
}
