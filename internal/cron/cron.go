// Package cron schedules the bot's periodic background work: expiring
// email sessions and pruning idle rate-limit buckets.
package cron

import "context"

// ServiceName is the AppContext key the app's Scheduler is registered under.
const ServiceName = "cron.scheduler"

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "*/5 * * * *").
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}
