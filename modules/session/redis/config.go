package redis

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultAddr      = "localhost:6379"
	defaultKeyPrefix = "ghostmail:"
	defaultGrace     = time.Hour
	defaultTTL       = 24 * time.Hour
)

// Config holds the Redis session module configuration.
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// KeyPrefix namespaces every key. Defaults to "ghostmail:".
	KeyPrefix string `yaml:"key_prefix"`

	// TTL is the key lifetime for sessions whose expiry is unknown.
	TTL time.Duration `yaml:"ttl"`

	// Grace keeps keys alive past the session expiry so the sweeper can
	// still notify the user before Redis evicts them.
	Grace time.Duration `yaml:"grace"`
}

func (c *Config) defaults() {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = defaultKeyPrefix
	}
	if c.TTL == 0 {
		c.TTL = defaultTTL
	}
	if c.Grace == 0 {
		c.Grace = defaultGrace
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.DB < 0 {
		errs = append(errs, fmt.Errorf("redis: db must be non-negative, got %d", c.DB))
	}
	if c.TTL < 0 {
		errs = append(errs, errors.New("redis: ttl must be non-negative"))
	}
	if c.Grace < 0 {
		errs = append(errs, errors.New("redis: grace must be non-negative"))
	}
	return errors.Join(errs...)
}
