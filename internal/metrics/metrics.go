package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's prometheus collectors on a private
// registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	httpDuration        *prometheus.HistogramVec
	autosavesFired      prometheus.Counter
	instructionSaves    *prometheus.CounterVec
	mediaRemoveFailures prometheus.Counter
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mes_http_request_duration_seconds",
			Help:    "HTTP request duration by route, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		autosavesFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mes_autosaves_fired_total",
			Help: "Production-log autosaves triggered by the coordinator.",
		}),
		instructionSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mes_instruction_saves_total",
			Help: "Work-instruction saves by editor state.",
		}, []string{"state"}),
		mediaRemoveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mes_media_remove_failures_total",
			Help: "Media files that could not be removed from disk.",
		}),
	}

	m.registry.MustRegister(
		m.httpDuration,
		m.autosavesFired,
		m.instructionSaves,
		m.mediaRemoveFailures,
	)

	return m
}

// Handler exposes the registry for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request duration labelled by chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

// AutosaveFired counts one coordinator-triggered save
func (m *Metrics) AutosaveFired() {
	m.autosavesFired.Inc()
}

// InstructionSaved counts one editor save in the given state
func (m *Metrics) InstructionSaved(state string) {
	m.instructionSaves.WithLabelValues(state).Inc()
}

// MediaRemoveFailed counts one failed media deletion
func (m *Metrics) MediaRemoveFailed() {
	m.mediaRemoveFailures.Inc()
}
