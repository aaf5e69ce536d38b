package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/ghostmail/internal/provider"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime   int64            `json:"uptime_seconds"`
	Sessions int              `json:"sessions"`
	Channels []string         `json:"channels"`
	Webhooks []string         `json:"webhooks"`
	Jobs     []string         `json:"jobs"`
	Provider *provider.Status `json:"provider,omitempty"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			Uptime:   int64(time.Since(g.startedAt).Seconds()),
			Sessions: g.sessionCount(r),
			Channels: g.channelNames(),
			Webhooks: g.dispatcher.Sources(),
			Jobs:     []string{},
		}
		if g.jobs != nil {
			resp.Jobs = g.jobs.Jobs()
		}
		if g.backend != nil {
			st := g.backend.Status()
			resp.Provider = &st
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
