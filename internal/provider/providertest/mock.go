// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/flemzord/ghostmail/internal/provider"
	"github.com/flemzord/ghostmail/pkg/mail"
)

// MockProvider is a configurable test double for provider.Provider.
// Set the Func fields to control behavior. Unset funcs fail with
// provider.ErrProviderDown. All methods are safe for concurrent use.
type MockProvider struct {
	DomainsFunc       func(ctx context.Context) ([]string, error)
	CreateEmailFunc   func(ctx context.Context) (mail.Account, error)
	ChangeEmailFunc   func(ctx context.Context, token, username, domain string) (mail.Account, error)
	DeleteEmailFunc   func(ctx context.Context, token string) error
	MessagesFunc      func(ctx context.Context, token string) ([]mail.RawMessage, error)
	MessageFunc       func(ctx context.Context, id string) (mail.RawMessage, error)
	DeleteMessageFunc func(ctx context.Context, id string) error
	HealthCheckFunc   func(ctx context.Context) error

	mu    sync.Mutex
	calls map[string]int
}

var _ provider.Provider = (*MockProvider)(nil)

// Calls returns how many times op was invoked.
func (m *MockProvider) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockProvider) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

func unset(op string) error {
	return fmt.Errorf("providertest: %s not configured: %w", op, provider.ErrProviderDown)
}

// Domains delegates to DomainsFunc.
func (m *MockProvider) Domains(ctx context.Context) ([]string, error) {
	m.record("domains")
	if m.DomainsFunc == nil {
		return nil, unset("domains")
	}
	return m.DomainsFunc(ctx)
}

// CreateEmail delegates to CreateEmailFunc.
func (m *MockProvider) CreateEmail(ctx context.Context) (mail.Account, error) {
	m.record("create")
	if m.CreateEmailFunc == nil {
		return mail.Account{}, unset("create")
	}
	return m.CreateEmailFunc(ctx)
}

// ChangeEmail delegates to ChangeEmailFunc.
func (m *MockProvider) ChangeEmail(ctx context.Context, token, username, domain string) (mail.Account, error) {
	m.record("change")
	if m.ChangeEmailFunc == nil {
		return mail.Account{}, unset("change")
	}
	return m.ChangeEmailFunc(ctx, token, username, domain)
}

// DeleteEmail delegates to DeleteEmailFunc.
func (m *MockProvider) DeleteEmail(ctx context.Context, token string) error {
	m.record("delete_email")
	if m.DeleteEmailFunc == nil {
		return unset("delete_email")
	}
	return m.DeleteEmailFunc(ctx, token)
}

// Messages delegates to MessagesFunc.
func (m *MockProvider) Messages(ctx context.Context, token string) ([]mail.RawMessage, error) {
	m.record("messages")
	if m.MessagesFunc == nil {
		return nil, unset("messages")
	}
	return m.MessagesFunc(ctx, token)
}

// Message delegates to MessageFunc.
func (m *MockProvider) Message(ctx context.Context, id string) (mail.RawMessage, error) {
	m.record("message")
	if m.MessageFunc == nil {
		return mail.RawMessage{}, unset("message")
	}
	return m.MessageFunc(ctx, id)
}

// DeleteMessage delegates to DeleteMessageFunc.
func (m *MockProvider) DeleteMessage(ctx context.Context, id string) error {
	m.record("delete_message")
	if m.DeleteMessageFunc == nil {
		return unset("delete_message")
	}
	return m.DeleteMessageFunc(ctx, id)
}

// HealthCheck delegates to HealthCheckFunc; unset means healthy.
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.record("health")
	if m.HealthCheckFunc == nil {
		return nil
	}
	return m.HealthCheckFunc(ctx)
}
