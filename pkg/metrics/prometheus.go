package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions   *prometheus.CounterVec
	domainStatus  *prometheus.CounterVec
	ingested      *prometheus.CounterVec
	clampedScores prometheus.Counter
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learncast_predictions_total",
				Help: "Composed predictions by overall status",
			},
			[]string{"status"},
		),
		domainStatus: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learncast_prediction_domains_total",
				Help: "Prediction domains by outcome status",
			},
			[]string{"domain", "status"},
		),
		ingested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learncast_activity_records_ingested_total",
				Help: "Activity records accepted into the store",
			},
			[]string{"source"},
		),
		clampedScores: f.NewCounter(
			prometheus.CounterOpts{
				Name: "learncast_activity_scores_clamped_total",
				Help: "Activity scores clamped into [0,1] during aggregation",
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "learncast_errors_total",
				Help: "Errors by kind",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "learncast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordPrediction(status string) {
	r.predictions.WithLabelValues(status).Inc()
}

func (r *Recorder) RecordDomainStatus(domain, status string) {
	r.domainStatus.WithLabelValues(domain, status).Inc()
}

func (r *Recorder) RecordRecordsIngested(source string, n int) {
	if n > 0 {
		r.ingested.WithLabelValues(source).Add(float64(n))
	}
}

func (r *Recorder) RecordClamped(n int) {
	if n > 0 {
		r.clampedScores.Add(float64(n))
	}
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordPrediction(string) {}
func (Nop) RecordDomainStatus(string, string) {}
func (Nop) RecordRecordsIngested(string, int) {}
func (Nop) RecordClamped(int) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}

// StatusLabel formats an HTTP status code for label values.
func StatusLabel(code int) string { return strconv.Itoa(code) }
