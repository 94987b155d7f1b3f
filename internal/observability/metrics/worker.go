package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics tracks ingestion requests consumed from the queue. It shares
// the registry of the process Metrics so one /metrics endpoint exposes both.
type WorkerMetrics struct {
	requestTotal    *prometheus.CounterVec
	requestDuration prometheus.Histogram
	requestInFlight prometheus.Gauge
}

func NewWorkerMetrics(m *Metrics) *WorkerMetrics {
	constLabels := prometheus.Labels{"service": m.service}
	w := &WorkerMetrics{
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "ingest_requests_total",
			Help:        "Ingestion requests handled by status.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "ingest_request_duration_seconds",
			Help:        "Ingestion request handling duration in seconds.",
			Buckets:     []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
			ConstLabels: constLabels,
		}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "ingest_requests_in_flight",
			Help:        "Ingestion requests currently being handled.",
			ConstLabels: constLabels,
		}),
	}
	m.registry.MustRegister(w.requestTotal, w.requestDuration, w.requestInFlight)
	return w
}

func (w *WorkerMetrics) StartRequest() {
	w.requestInFlight.Inc()
}

func (w *WorkerMetrics) FinishRequest(duration time.Duration, err error) {
	w.requestInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	w.requestTotal.WithLabelValues(status).Inc()
	w.requestDuration.Observe(duration.Seconds())
}
