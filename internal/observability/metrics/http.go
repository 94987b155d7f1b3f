package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
)

const namespace = "civilrag"

// Metrics is the API process registry. It also implements
// ports.RetrievalObserver.
type Metrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalTotal     *prometheus.CounterVec
	retrievalDuration  prometheus.Histogram
	retrievalCandidate *prometheus.HistogramVec
	denseFallbackTotal prometheus.Counter

	ingestionTotal    *prometheus.CounterVec
	ingestionPassages prometheus.Gauge

	breakerTransitions *prometheus.CounterVec
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	m := &Metrics{
		service:  service,
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "path"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		}),
		retrievalTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "requests_total",
			Help:        "Hybrid retrieval calls by outcome.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		retrievalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "duration_seconds",
			Help:        "Hybrid retrieval duration in seconds.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			ConstLabels: constLabels,
		}),
		retrievalCandidate: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "candidates",
			Help:        "Candidates per retrieval call by stage.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
			ConstLabels: constLabels,
		}, []string{"stage"}),
		denseFallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "retrieval",
			Name:        "dense_fallback_total",
			Help:        "Retrievals that re-embedded malformed dense results.",
			ConstLabels: constLabels,
		}),
		ingestionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "ingestion",
			Name:        "runs_total",
			Help:        "Corpus ingestion runs by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		ingestionPassages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "ingestion",
			Name:        "indexed_passages",
			Help:        "Passages embedded by the last successful ingestion.",
			ConstLabels: constLabels,
		}),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "resilience",
			Name:        "breaker_transitions_total",
			Help:        "Circuit breaker state changes by operation.",
			ConstLabels: constLabels,
		}, []string{"operation", "to"}),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.retrievalTotal,
		m.retrievalDuration,
		m.retrievalCandidate,
		m.denseFallbackTotal,
		m.ingestionTotal,
		m.ingestionPassages,
		m.breakerTransitions,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRetrieval(stats domain.CandidateStats, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.retrievalTotal.WithLabelValues(status).Inc()
	m.retrievalDuration.Observe(duration.Seconds())
	if err != nil {
		return
	}

	m.retrievalCandidate.WithLabelValues("dense").Observe(float64(stats.Dense))
	m.retrievalCandidate.WithLabelValues("sparse").Observe(float64(stats.Sparse))
	m.retrievalCandidate.WithLabelValues("merged").Observe(float64(stats.Merged))
	m.retrievalCandidate.WithLabelValues("returned").Observe(float64(stats.Returned))
	if stats.DenseFallback {
		m.denseFallbackTotal.Inc()
	}
}

func (m *Metrics) ObserveIngestion(report domain.IndexReport, _ time.Duration, err error) {
	switch {
	case err != nil:
		m.ingestionTotal.WithLabelValues("error").Inc()
	case report.Skipped:
		m.ingestionTotal.WithLabelValues("skipped").Inc()
	default:
		m.ingestionTotal.WithLabelValues("indexed").Inc()
		m.ingestionPassages.Set(float64(report.Count))
	}
}

// ObserveBreakerTransition matches resilience.StateChangeFunc.
func (m *Metrics) ObserveBreakerTransition(operation, _, to string) {
	m.breakerTransitions.WithLabelValues(operation, to).Inc()
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := routeLabel(r)
		m.requestTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routeLabel prefers the matched mux pattern so path parameters do not
// explode label cardinality.
func routeLabel(r *http.Request) string {
	pattern := r.Pattern
	if pattern == "" {
		return "unmatched"
	}
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
