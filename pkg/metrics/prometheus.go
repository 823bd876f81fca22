package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	recomputes    prometheus.Counter
	analyses      *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec
	finalScore    *prometheus.GaugeVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		recomputes: f.NewCounter(
			prometheus.CounterOpts{
				Name: "fxbias_recompute_total",
				Help: "Total number of state recomputations",
			},
		),
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxbias_analysis_total",
				Help: "Indicator analyses by currency and result",
			},
			[]string{"currency", "result"},
		),
		cacheRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxbias_cache_requests_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		finalScore: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fxbias_final_score",
				Help: "Last final score per currency",
			},
			[]string{"currency"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxbias_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxbias_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRecompute counts one recomputation of the session state.
func (r *Recorder) RecordRecompute() {
	r.recomputes.Inc()
}

// RecordAnalysis records an indicator analysis outcome (ok, cached, error, invalid).
func (r *Recorder) RecordAnalysis(currency, result string) {
	r.analyses.WithLabelValues(currency, result).Inc()
}

func (r *Recorder) RecordCacheRequest(cache, result string) {
	r.cacheRequests.WithLabelValues(cache, result).Inc()
}

func (r *Recorder) RecordFinalScore(currency string, score float64) {
	r.finalScore.WithLabelValues(currency).Set(score)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
