// Package metrics records renderer and server activity in Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seenimoa/forecastviz/internal/dashboard"
)

// Recorder implements dashboard.Observer using Prometheus. Each Recorder
// owns its registry so several can coexist in one process (tests, CLI).
type Recorder struct {
	registry *prometheus.Registry

	rendersTotal  *prometheus.CounterVec
	renderLatency *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	wsClients     prometheus.Gauge
	watchEvents   *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder with a private registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		rendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastviz_renders_total",
				Help: "Dashboard render attempts by outcome",
			},
			[]string{"outcome"},
		),
		renderLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecastviz_render_duration_seconds",
				Help:    "Time to build and write one dashboard",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"outcome"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastviz_http_requests_total",
				Help: "HTTP requests served by the preview server",
			},
			[]string{"route", "method", "status"},
		),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "forecastviz_ws_clients",
			Help: "Connected live-reload WebSocket clients",
		}),
		watchEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecastviz_watch_events_total",
				Help: "Source file changes handled by the watcher",
			},
			[]string{"outcome"},
		),
	}
}

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Outcome classifies a render error for labelling.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, dashboard.ErrInvalidResult):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// ObserveRender records one render attempt.
func (r *Recorder) ObserveRender(_ string, err error, elapsed time.Duration) {
	outcome := Outcome(err)
	r.rendersTotal.WithLabelValues(outcome).Inc()
	r.renderLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RecordRequest records a served HTTP request. Use route patterns, not raw
// URLs, to keep label cardinality bounded.
func (r *Recorder) RecordRequest(route, method, status string) {
	r.httpRequests.WithLabelValues(route, method, status).Inc()
}

// SetWSClients records the number of live-reload clients.
func (r *Recorder) SetWSClients(n int) {
	r.wsClients.Set(float64(n))
}

// RecordWatchEvent records a watcher-triggered render.
func (r *Recorder) RecordWatchEvent(err error) {
	r.watchEvents.WithLabelValues(Outcome(err)).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
