package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fxbias",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of bias API operations",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fxbias",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by bias API operation",
		},
		[]string{"endpoint"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fxbias",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client limiter",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors, RateLimited)
	})
}
