// Package gateway provides an HTTP server for administration, monitoring,
// and webhooks. It binds to loopback by default and follows the module system pattern.
package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/flemzord/ghostmail/internal/core"
	"github.com/flemzord/ghostmail/internal/cron"
	"github.com/flemzord/ghostmail/internal/session"
	"github.com/go-chi/chi/v5"
)

// sessionJSON is a serializable session snapshot. The mailbox token is
// never exposed.
type sessionJSON struct {
	ChatID       string `json:"chat_id"`
	EmailAddress string `json:"email_address"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// handleListSessions returns all active sessions as JSON.
func (g *Gateway) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := []sessionJSON{}

		if g.sessions != nil {
			list, err := g.sessions.List(r.Context())
			if err != nil {
				g.logger.Error("gateway: listing sessions failed", "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing sessions failed"})
				return
			}
			for _, s := range list {
				out = append(out, sessionJSON{
					ChatID:       s.ChatID,
					EmailAddress: s.EmailAddress,
					ExpiresAt:    s.ExpiresAt,
					CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
				})
			}
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// handleDeleteSession forgets the session of one chat. The address itself
// is left to expire at the provider.
func (g *Gateway) handleDeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID := chi.URLParam(r, "chat")
		if chatID == "" {
			http.Error(w, "missing chat id", http.StatusBadRequest)
			return
		}

		if g.sessions == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		if _, err := g.sessions.Get(r.Context(), chatID); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			g.logger.Error("gateway: loading session failed", "chat_id", chatID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if err := g.sessions.Delete(r.Context(), chatID); err != nil {
			g.logger.Error("gateway: deleting session failed", "chat_id", chatID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		g.logger.Info("gateway: session deleted", "chat_id", chatID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleListJobs lists the registered background jobs.
func (g *Gateway) handleListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		jobs := []string{}
		if g.jobs != nil {
			jobs = append(jobs, g.jobs.Jobs()...)
		}
		writeJSON(w, http.StatusOK, jobs)
	}
}

// handleRunJob runs a background job immediately and waits for it.
func (g *Gateway) handleRunJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.jobs == nil {
			http.Error(w, "scheduler not available", http.StatusServiceUnavailable)
			return
		}

		name := chi.URLParam(r, "name")
		err := g.jobs.RunNow(r.Context(), name)
		switch {
		case errors.Is(err, cron.ErrUnknownJob):
			http.Error(w, "unknown job", http.StatusNotFound)
		case errors.Is(err, cron.ErrJobBusy):
			http.Error(w, "job already running", http.StatusConflict)
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": "done", "job": name})
		}
	}
}

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// handleGetAllModules lists all compiled modules (for /api/modules).
func (g *Gateway) handleGetAllModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
