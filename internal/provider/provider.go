// Package provider defines the contract for temporary-mail backends and a
// Guard that wraps a backend with health tracking and request metrics.
// Concrete backends live in separate packages (e.g. provider.ghostmail)
// and typically also implement core.Module for lifecycle management.
package provider

import (
	"context"

	"github.com/flemzord/ghostmail/pkg/mail"
)

// ServiceName is the AppContext key the active provider is registered under.
const ServiceName = "provider"

// Provider is the interface for talking to a temporary-mail API.
type Provider interface {
	// Domains lists the domains addresses can be created on, in the
	// order the backend returned them.
	Domains(ctx context.Context) ([]string, error)

	// CreateEmail allocates a new random address.
	CreateEmail(ctx context.Context) (mail.Account, error)

	// ChangeEmail replaces the address behind token with username@domain.
	ChangeEmail(ctx context.Context, token, username, domain string) (mail.Account, error)

	// DeleteEmail releases the address behind token.
	DeleteEmail(ctx context.Context, token string) error

	// Messages lists the inbox of the address behind token, newest first
	// as returned by the backend.
	Messages(ctx context.Context, token string) ([]mail.RawMessage, error)

	// Message fetches a single message. ErrNotFound is returned when the
	// backend has no message with that ID.
	Message(ctx context.Context, id string) (mail.RawMessage, error)

	// DeleteMessage removes a single message.
	DeleteMessage(ctx context.Context, id string) error
}

// HealthChecker is an optional interface that providers may implement
// to support active health probing. When a provider is in cooldown,
// the Guard calls HealthCheck periodically to determine if it has
// recovered.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
