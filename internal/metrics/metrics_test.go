package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDelivery(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveDelivery(3, []channel.Outcome{
		channel.DeliveredFormatted,
		channel.DeliveredPlain,
		channel.DeliveredFormatted,
	})

	if got := testutil.ToFloat64(m.deliveryOutcomes.WithLabelValues("formatted")); got != 2 {
		t.Errorf("formatted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.deliveryOutcomes.WithLabelValues("plain")); got != 1 {
		t.Errorf("plain = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.deliveryChunks); got != 1 {
		t.Errorf("chunks histogram series = %d, want 1", got)
	}
}

func TestObserveProviderRequest(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveProviderRequest("messages", nil, 20*time.Millisecond)
	m.ObserveProviderRequest("messages", errors.New("boom"), time.Second)
	m.ObserveProviderRequest("create", nil, time.Millisecond)

	if got := testutil.ToFloat64(m.providerRequests.WithLabelValues("messages", "ok")); got != 1 {
		t.Errorf("messages/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.providerRequests.WithLabelValues("messages", "error")); got != 1 {
		t.Errorf("messages/error = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.providerDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestEventsAndSessions(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveEvent("command", "create")
	m.ObserveEvent("command", "create")
	m.SetSessions(4)

	if got := testutil.ToFloat64(m.botEvents.WithLabelValues("command", "create")); got != 2 {
		t.Errorf("command/create = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.sessionsActive); got != 4 {
		t.Errorf("sessions_active = %v, want 4", got)
	}
}

func TestHandler_Exposition(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveEvent("callback", "check_messages")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`ghostmail_bot_events_total{kind="callback",name="check_messages"} 1`,
		"ghostmail_sessions_active",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	t.Parallel()

	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Delete("/api/sessions/{chat}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, chat := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+chat, nil))
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodDelete, "/api/sessions/{chat}", "204"))
	if got != 2 {
		t.Fatalf("requests for route pattern = %v, want 2", got)
	}
}
