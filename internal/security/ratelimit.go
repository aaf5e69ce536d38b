package security

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimitConfig holds configurable rate limits.
type RateLimitConfig struct {
	EventsPerMin int           `yaml:"events_per_min"`
	Window       time.Duration `yaml:"window"`
}

// rateLimitConfigDefaults returns a config with sensible defaults.
func rateLimitConfigDefaults() RateLimitConfig {
	return RateLimitConfig{
		EventsPerMin: 30,
		Window:       time.Minute,
	}
}

// RateLimiter implements per-key sliding window rate limiting.
// Each key (a chat ID in practice) gets its own bucket of recent event
// timestamps. All methods are safe for concurrent use.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  RateLimitConfig
	now     func() time.Time
}

type bucket struct {
	events []time.Time
	// notified is the time the caller was last told it is being limited.
	notified time.Time
}

// NewRateLimiter creates a rate limiter with the given config.
// Zero-value fields in cfg are replaced with defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	defaults := rateLimitConfigDefaults()
	if cfg.EventsPerMin <= 0 {
		cfg.EventsPerMin = defaults.EventsPerMin
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}

	return &RateLimiter{
		config:  cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow records an event for key and reports whether it fits the window.
// Returns nil if allowed, ErrRateLimited if the limit is exceeded.
// Denied events are not recorded.
func (rl *RateLimiter) Allow(key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{}
		rl.buckets[key] = b
	}
	b.evict(now, rl.config.Window)

	if len(b.events) >= rl.config.EventsPerMin {
		return ErrRateLimited
	}

	b.events = append(b.events, now)
	return nil
}

// Exhausted reports whether key has no room left in the current window.
// Unlike Allow it records nothing.
func (rl *RateLimiter) Exhausted(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		return false
	}
	b.evict(rl.now(), rl.config.Window)
	return len(b.events) >= rl.config.EventsPerMin
}

// Notify reports whether a limited key should be told about it. It returns
// true at most once per window for each key.
func (rl *RateLimiter) Notify(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{}
		rl.buckets[key] = b
	}
	if !b.notified.IsZero() && now.Sub(b.notified) < rl.config.Window {
		return false
	}
	b.notified = now
	return true
}

// Prune drops buckets with no events inside the window and returns how
// many were removed.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, b := range rl.buckets {
		b.evict(now, rl.config.Window)
		if len(b.events) == 0 && now.Sub(b.notified) >= rl.config.Window {
			delete(rl.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Config returns the effective configuration.
func (rl *RateLimiter) Config() RateLimitConfig {
	return rl.config
}

// evict removes events outside the sliding window.
func (b *bucket) evict(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	// Events are chronologically ordered.
	i := 0
	for i < len(b.events) && !b.events[i].After(cutoff) {
		i++
	}
	if i > 0 {
		b.events = b.events[i:]
	}
}
