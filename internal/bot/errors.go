// Package bot turns chat events into provider calls and rendered replies.
// Events for one chat are handled in arrival order; different chats are
// handled concurrently on a fixed worker pool.
package bot

import "errors"

// Sentinel errors for bot operations.
var (
	// ErrQueueFull indicates the bot's event queue is at capacity and the
	// event was dropped.
	ErrQueueFull = errors.New("bot: queue full, event dropped")

	// ErrStopped indicates the bot has been shut down and no longer accepts
	// events.
	ErrStopped = errors.New("bot: stopped")

	// ErrNoProvider indicates no temp-mail provider was supplied.
	ErrNoProvider = errors.New("bot: no provider configured")

	// ErrNoSessions indicates no session store was supplied.
	ErrNoSessions = errors.New("bot: no session store configured")

	// ErrNoSenders indicates no way to reach a channel was supplied.
	ErrNoSenders = errors.New("bot: no sender resolver configured")
)
