// Package redis implements a session store module on Redis, for deployments
// that run several bot replicas against one shared session state.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/ghostmail/internal/core"
	"github.com/flemzord/ghostmail/internal/session"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

const pingTimeout = 5 * time.Second

// Module provides a Redis-backed session.Store.
type Module struct {
	config Config
	client *goredis.Client
	store  *Store
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "session.redis",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("redis: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	m.client = goredis.NewClient(&goredis.Options{
		Addr:     m.config.Addr,
		Password: m.config.Password,
		DB:       m.config.DB,
	})
	m.store = NewStore(m.client, m.config)

	ctx.RegisterService(session.ServiceName, m.store)

	m.logger.Info("redis session store provisioned",
		"addr", m.config.Addr,
		"db", m.config.DB,
		"prefix", m.config.KeyPrefix,
	)
	return nil
}

// Validate implements core.Validator. It checks the configuration and that
// the server answers.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping %s: %w", m.config.Addr, err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.client == nil {
		return nil
	}
	m.logger.Info("redis session store stopping")
	err := m.client.Close()
	m.client = nil
	return err
}
