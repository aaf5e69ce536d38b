package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/flemzord/ghostmail/internal/cron"
	"github.com/flemzord/ghostmail/internal/render"
	"github.com/flemzord/ghostmail/internal/security"
)

const (
	defaultWorkers       = 10
	defaultQueueSize     = 256
	defaultSessionTTL    = time.Hour
	defaultSweepSchedule = "*/5 * * * *"
	defaultNotifyChannel = "telegram"
)

// Config holds the bot tunables. It is decoded from the top-level "bot:"
// section of the configuration file. Zero fields take the defaults.
type Config struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`

	PageSize      int `yaml:"page_size"`
	MaxActions    int `yaml:"max_actions"`
	MaxBodyLength int `yaml:"max_body_length"`
	ChunkSize     int `yaml:"chunk_size"`

	Pacing      time.Duration `yaml:"pacing"`
	SendTimeout time.Duration `yaml:"send_timeout"`

	// SessionTTL bounds a session when the provider's deletion time cannot
	// be parsed.
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SweepSchedule string        `yaml:"sweep_schedule"`
	// NotifyChannel is the channel expiry notices are sent through.
	NotifyChannel string `yaml:"notify_channel"`

	RateLimit security.RateLimitConfig `yaml:"rate_limit"`
}

// Defaults fills zero fields with their default values.
func (c *Config) Defaults() {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.PageSize <= 0 {
		c.PageSize = render.DefaultPageSize
	}
	if c.MaxActions <= 0 {
		c.MaxActions = render.DefaultMaxActions
	}
	if c.MaxBodyLength <= 0 {
		c.MaxBodyLength = render.DefaultMaxLength
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = channel.DefaultChunkSize
	}
	if c.Pacing <= 0 {
		c.Pacing = channel.DefaultPacing
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = channel.DefaultSendTimeout
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = defaultSweepSchedule
	}
	if c.NotifyChannel == "" {
		c.NotifyChannel = defaultNotifyChannel
	}
}

// Validate checks value ranges. Call it after Defaults.
func (c *Config) Validate() error {
	var errs []error
	if c.ChunkSize > 4096 {
		errs = append(errs, fmt.Errorf("bot: chunk_size must be at most 4096, got %d", c.ChunkSize))
	}
	if c.MaxBodyLength >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("bot: max_body_length (%d) must be below chunk_size (%d)", c.MaxBodyLength, c.ChunkSize))
	}
	if c.MaxActions > c.PageSize {
		errs = append(errs, fmt.Errorf("bot: max_actions (%d) must not exceed page_size (%d)", c.MaxActions, c.PageSize))
	}
	if err := cron.ValidateSchedule(c.SweepSchedule); err != nil {
		errs = append(errs, fmt.Errorf("bot: sweep_schedule %q: %w", c.SweepSchedule, err))
	}
	if c.RateLimit.EventsPerMin < 0 {
		errs = append(errs, errors.New("bot: rate_limit.events_per_min must not be negative"))
	}
	return errors.Join(errs...)
}
