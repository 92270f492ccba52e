package telemetry

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the pipeline instrumentation on a private registry so
// tests and embedders never collide with the default global one.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal      *prometheus.CounterVec
	fetchDuration   prometheus.Histogram
	extractAttempts *prometheus.CounterVec
	registered      prometheus.Counter
	duplicates      prometheus.Counter
	exports         *prometheus.CounterVec
	runDuration     prometheus.Histogram
}

// NewMetrics creates the metric set on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_fetch_total",
			Help: "Fetch outcomes by result kind.",
		}, []string{"result"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "curator_fetch_duration_seconds",
			Help:    "Wall time spent fetching a single URL.",
			Buckets: prometheus.DefBuckets,
		}),
		extractAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_extraction_attempts_total",
			Help: "Extraction attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		registered: factory.NewCounter(prometheus.CounterOpts{
			Name: "curator_sources_registered_total",
			Help: "Sources accepted into the registry.",
		}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "curator_sources_deduplicated_total",
			Help: "Registrations resolved by merging into an existing entry.",
		}),
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_exports_total",
			Help: "Rendered exports by format.",
		}, []string{"format"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "curator_run_duration_seconds",
			Help:    "Wall time of a full research run.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
}

// ObserveFetch records one fetch outcome. Result is "ok" or a FetchError kind.
func (m *Metrics) ObserveFetch(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(result).Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
}

// ObserveAttempt records one strategy attempt.
func (m *Metrics) ObserveAttempt(strategy string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.extractAttempts.WithLabelValues(strategy, outcome).Inc()
}

// ObserveRegistration records a registry insert or a duplicate merge.
func (m *Metrics) ObserveRegistration(duplicate bool) {
	if m == nil {
		return
	}
	if duplicate {
		m.duplicates.Inc()
		return
	}
	m.registered.Inc()
}

// ObserveRun records one completed research run.
func (m *Metrics) ObserveRun(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(elapsed.Seconds())
}

// ObserveExport records one rendered export.
func (m *Metrics) ObserveExport(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

// Handler exposes the registry in prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr in a background goroutine and returns
// the server so the caller can Shutdown it.
func (m *Metrics) StartServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	return server
}

// NewLogger returns a stdout logger with the conventional bracketed prefix,
// e.g. NewLogger("FETCH") logs lines starting with "[FETCH] ".
func NewLogger(prefix string) *log.Logger {
	return log.New(os.Stdout, "["+prefix+"] ", log.LstdFlags)
}
