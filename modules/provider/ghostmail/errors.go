package ghostmail

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/flemzord/ghostmail/internal/provider"
)

// ErrUpstream indicates the API answered but did not report success.
var ErrUpstream = errors.New("ghostmail: upstream error")

// APIError is a non-2xx HTTP response from the temp-mail API.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ghostmail: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ghostmail: %s: HTTP %d", e.Op, e.StatusCode)
}

// Unwrap maps the status code onto the provider sentinels so callers can
// use errors.Is without knowing about this package.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return provider.ErrRateLimit
	case e.StatusCode >= 500:
		return provider.ErrProviderDown
	case e.StatusCode == http.StatusNotFound:
		return provider.ErrNotFound
	default:
		return ErrUpstream
	}
}

// retryable reports whether the status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
