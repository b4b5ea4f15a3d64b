package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	PredictionLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "learncast",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of prediction endpoints",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	PredictionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "learncast",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Failed prediction requests by endpoint and error kind",
		},
		[]string{"endpoint", "kind"},
	)
)

// Register adds the endpoint collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(PredictionLatency, PredictionErrors)
	})
}
