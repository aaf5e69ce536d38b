package provider

import (
	"sync"
	"time"
)

// breakerState is where the provider breaker stands.
type breakerState int

const (
	// stateUp lets every request through.
	stateUp breakerState = iota
	// stateBackoff rejects requests until retryAt, then lets the next
	// one through as a trial.
	stateBackoff
	// stateDown rejects everything; only the background probe brings the
	// provider back.
	stateDown
)

func (s breakerState) String() string {
	switch s {
	case stateUp:
		return "up"
	case stateBackoff:
		return "backoff"
	case stateDown:
		return "down"
	}
	return "unknown"
}

// HealthConfig tunes the breaker in front of the mail API.
type HealthConfig struct {
	// InitialBackoff follows the first failure and doubles with each
	// further one. Default 1s.
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	// MaxBackoff caps the doubling. Default 60s.
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// MaxFailures consecutive failures mark the provider down. Default 5.
	MaxFailures int `yaml:"max_failures"`
	// CheckInterval is how often the probe runs while not up. Default 30s.
	CheckInterval time.Duration `yaml:"check_interval"`
}

func (c *HealthConfig) defaults() {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = time.Minute
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 30 * time.Second
	}
}

// Status is the provider health reported by /health and /status.
type Status struct {
	Name      string     `json:"name"`
	State     string     `json:"state"`
	Available bool       `json:"available"`
	Failures  int        `json:"failures"`
	RetryAt   *time.Time `json:"retry_at,omitempty"`
}

// breaker counts consecutive transient failures of the provider and
// decides whether the next request may reach it.
type breaker struct {
	cfg      HealthConfig
	now      func() time.Time
	onChange func(from, to breakerState) // called without the lock held

	mu       sync.Mutex
	state    breakerState
	failures int
	retryAt  time.Time
}

func newBreaker(cfg HealthConfig) *breaker {
	cfg.defaults()
	return &breaker{cfg: cfg, now: time.Now}
}

// passable must be called with b.mu held.
func (b *breaker) passable() bool {
	switch b.state {
	case stateUp:
		return true
	case stateBackoff:
		return !b.now().Before(b.retryAt)
	}
	return false
}

// Allow reports whether a request may go out now.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.passable()
}

// NeedsProbe reports whether the background check should run: the
// provider is down, or its backoff has elapsed without traffic.
func (b *breaker) NeedsProbe() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateDown || (b.state == stateBackoff && b.passable())
}

// Success closes the breaker.
func (b *breaker) Success() {
	b.mu.Lock()
	from := b.state
	b.state, b.failures, b.retryAt = stateUp, 0, time.Time{}
	b.mu.Unlock()
	b.changed(from, stateUp)
}

// Failure records a transient failure.
func (b *breaker) Failure() {
	b.mu.Lock()
	from := b.state
	b.failures++
	if b.failures >= b.cfg.MaxFailures {
		b.state, b.retryAt = stateDown, time.Time{}
	} else {
		b.state = stateBackoff
		b.retryAt = b.now().Add(b.backoff())
	}
	to := b.state
	b.mu.Unlock()
	b.changed(from, to)
}

// backoff is InitialBackoff doubled for every failure after the first,
// capped at MaxBackoff.
func (b *breaker) backoff() time.Duration {
	d := b.cfg.InitialBackoff
	for i := 1; i < b.failures && d < b.cfg.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, b.cfg.MaxBackoff)
}

func (b *breaker) changed(from, to breakerState) {
	if from != to && b.onChange != nil {
		b.onChange(from, to)
	}
}

// Status snapshots the breaker under the given provider name.
func (b *breaker) Status(name string) Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := Status{
		Name:      name,
		State:     b.state.String(),
		Available: b.passable(),
		Failures:  b.failures,
	}
	if b.state == stateBackoff {
		at := b.retryAt
		st.RetryAt = &at
	}
	return st
}
