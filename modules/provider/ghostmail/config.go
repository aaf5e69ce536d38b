package ghostmail

import (
	"time"

	"github.com/flemzord/ghostmail/internal/provider"
)

const (
	defaultTimeout        = "15s"
	defaultMaxAttempts    = 3
	defaultInitialBackoff = "500ms"
)

// Config holds the YAML configuration for the temp-mail provider module.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.example.com/api" (required).
	BaseURL string `yaml:"base_url"`

	// APIKey is appended as the last path segment of every call (required).
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single HTTP attempt.
	// Default: "15s"
	Timeout string `yaml:"timeout"`

	// MaxAttempts is the number of tries for 429 and 5xx responses.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts"`

	// InitialBackoff is the delay before the first retry; it doubles
	// after each failed attempt.
	// Default: "500ms"
	InitialBackoff string `yaml:"initial_backoff"`

	// Health tunes the fail-fast guard wrapped around the client.
	Health provider.HealthConfig `yaml:"health"`
}

// defaults fills in zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.Timeout == "" {
		c.Timeout = defaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialBackoff == "" {
		c.InitialBackoff = defaultInitialBackoff
	}
}

func (c *Config) parsedTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Timeout)
}

func (c *Config) parsedBackoff() (time.Duration, error) {
	return time.ParseDuration(c.InitialBackoff)
}
