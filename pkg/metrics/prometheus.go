package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	pairsFound     prometheus.Counter
	anomalies      *prometheus.CounterVec
	resultsWritten *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		pairsFound: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "typotrade_pairs_found_total",
				Help: "Total number of candidate pairs discovered",
			},
		),
		anomalies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typotrade_volume_anomalies_total",
				Help: "Total number of volume anomalies detected",
			},
			[]string{"symbol"},
		),
		resultsWritten: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typotrade_results_written_total",
				Help: "Total number of study results written to backend",
			},
			[]string{"backend", "kind"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "typotrade_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "typotrade_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordPairsFound records the number of candidate pairs a scan produced.
func (r *Recorder) RecordPairsFound(n int) {
	r.pairsFound.Add(float64(n))
}

// RecordAnomaly records one detected volume anomaly for a symbol.
func (r *Recorder) RecordAnomaly(symbol string) {
	r.anomalies.WithLabelValues(symbol).Inc()
}

// RecordResultWritten records one result row delivered to a backend.
func (r *Recorder) RecordResultWritten(backend, kind string) {
	r.resultsWritten.WithLabelValues(backend, kind).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
