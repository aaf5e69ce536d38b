// Package metrics exposes the bot's Prometheus collectors. Every collector
// lives on a private registry so tests and multiple app instances never
// collide on the global default registerer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flemzord/ghostmail/internal/channel"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServiceName is the AppContext key the collectors are registered under.
const ServiceName = "metrics"

const namespace = "ghostmail"

// Metrics holds every collector the bot reports.
type Metrics struct {
	registry *prometheus.Registry

	deliveryOutcomes *prometheus.CounterVec
	deliveryChunks   prometheus.Histogram
	providerRequests *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	botEvents        *prometheus.CounterVec
	sessionsActive   prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		deliveryOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "outcomes_total",
			Help:      "Chunks delivered, by outcome (formatted, plain, failed).",
		}, []string{"outcome"}),
		deliveryChunks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "chunks",
			Help:      "Number of chunks per delivered reply.",
			Buckets:   []float64{1, 2, 3, 4, 6, 8, 12},
		}),
		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Temp-mail API requests by operation and result.",
		}, []string{"op", "result"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Temp-mail API request duration in seconds.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		botEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "events_total",
			Help:      "Inbound bot events by kind and command or action name.",
		}, []string{"kind", "name"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Email sessions currently held by the session store.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Gateway HTTP requests by method, route and status code.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Gateway HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.deliveryOutcomes,
		m.deliveryChunks,
		m.providerRequests,
		m.providerDuration,
		m.botEvents,
		m.sessionsActive,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveDelivery implements channel.Recorder.
func (m *Metrics) ObserveDelivery(chunks int, outcomes []channel.Outcome) {
	m.deliveryChunks.Observe(float64(chunks))
	for _, o := range outcomes {
		m.deliveryOutcomes.WithLabelValues(o.String()).Inc()
	}
}

// ObserveProviderRequest records one temp-mail API call.
func (m *Metrics) ObserveProviderRequest(op string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.providerRequests.WithLabelValues(op, result).Inc()
	m.providerDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveEvent records one inbound command, callback or text event.
func (m *Metrics) ObserveEvent(kind, name string) {
	m.botEvents.WithLabelValues(kind, name).Inc()
}

// SetSessions sets the active session gauge.
func (m *Metrics) SetSessions(n int) {
	m.sessionsActive.Set(float64(n))
}

// Middleware records request count and latency for every gateway route.
// Routes are labelled with their chi pattern to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := routePattern(r)
		m.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

var _ channel.Recorder = (*Metrics)(nil)
