package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/flemzord/ghostmail/internal/provider"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string           `json:"status"` // "ok" or "degraded"
	Sessions int              `json:"sessions"`
	Channels []string         `json:"channels"`
	Provider *provider.Status `json:"provider,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 while the backend is available, 503 once it is not.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Sessions: g.sessionCount(r),
			Channels: g.channelNames(),
		}

		if g.backend != nil {
			st := g.backend.Status()
			resp.Provider = &st
			if !st.Available {
				resp.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (g *Gateway) sessionCount(r *http.Request) int {
	if g.sessions == nil {
		return 0
	}
	n, err := g.sessions.Len(r.Context())
	if err != nil {
		g.logger.Warn("gateway: counting sessions failed", "error", err)
		return 0
	}
	return n
}

func (g *Gateway) channelNames() []string {
	if g.channels == nil {
		return []string{}
	}
	return g.channels.Channels()
}
