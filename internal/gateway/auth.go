package gateway

import (
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/flemzord/ghostmail/internal/security"
)

// AuthLimiterService is the AppContext key of the limiter counting failed
// admin logins, so the scheduler can prune it.
const AuthLimiterService = "gateway.auth_limiter"

// authMiddleware guards the admin endpoints with a bearer token or basic
// credentials. Failed attempts are counted per client in failures (may be
// nil); a client that used up its budget gets 429 until the window slides,
// whatever credentials it sends.
func authMiddleware(cfg AuthConfig, logger *slog.Logger, failures *security.RateLimiter) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)
			if failures != nil && failures.Exhausted(client) {
				http.Error(w, "too many failed attempts", http.StatusTooManyRequests)
				return
			}

			if authorized(cfg, r) {
				next.ServeHTTP(w, r)
				return
			}

			if failures != nil {
				_ = failures.Allow(client)
			}
			logger.Warn("gateway: auth failure",
				"remote_addr", r.RemoteAddr,
				"method", r.Method,
				"path", r.URL.Path,
				"has_credentials", r.Header.Get("Authorization") != "",
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="ghostmail"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}
}

func authorized(cfg AuthConfig, r *http.Request) bool {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && cfg.BearerToken != "" {
		return constantTimeEqual(token, cfg.BearerToken)
	}
	if cfg.BasicUser == "" || cfg.BasicPass == "" {
		return false
	}
	user, pass, ok := r.BasicAuth()
	// Both comparisons always run.
	userOK := constantTimeEqual(user, cfg.BasicUser)
	passOK := constantTimeEqual(pass, cfg.BasicPass)
	return ok && userOK && passOK
}

// clientKey buckets failures by client IP. Behind a reverse proxy set
// trust_proxy_headers so RemoteAddr carries the real client.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "gateway:auth:" + host
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
