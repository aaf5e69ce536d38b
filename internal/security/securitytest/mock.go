// Package securitytest provides test doubles for the security package.
package securitytest

import (
	"time"

	"github.com/flemzord/ghostmail/internal/security"
)

// NewUnlimited returns a RateLimiter whose limit is high enough that tests
// driving a handful of events never hit it.
func NewUnlimited() *security.RateLimiter {
	return security.NewRateLimiter(security.RateLimitConfig{
		EventsPerMin: 1 << 20,
		Window:       time.Minute,
	})
}
