package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	requests       *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	fallbacks      prometheus.Counter
	ingests        *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		requests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rwaprice_pricing_requests_total",
				Help: "Total number of pricing requests by outcome",
			},
			[]string{"outcome"},
		),
		sourceFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rwaprice_source_failures_total",
				Help: "Total number of data source failures",
			},
			[]string{"source", "kind"},
		),
		fallbacks: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "rwaprice_fallback_signals_total",
				Help: "Total number of deterministic fallback signals emitted",
			},
		),
		ingests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rwaprice_knowledge_ingests_total",
				Help: "Total number of knowledge store ingest attempts by status",
			},
			[]string{"status"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rwaprice_last_price",
				Help: "Last synthesized price for an asset",
			},
			[]string{"asset_id"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rwaprice_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRequest records a pricing request outcome.
func (r *Recorder) RecordRequest(outcome string) {
	r.requests.WithLabelValues(outcome).Inc()
}

// RecordSourceFailure records a data source failure.
func (r *Recorder) RecordSourceFailure(source, kind string) {
	r.sourceFailures.WithLabelValues(source, kind).Inc()
}

// RecordFallback records a deterministic fallback signal.
func (r *Recorder) RecordFallback() {
	r.fallbacks.Inc()
}

// RecordIngest records a knowledge store ingest attempt.
func (r *Recorder) RecordIngest(status string) {
	r.ingests.WithLabelValues(status).Inc()
}

// RecordLastPrice records the last synthesized price for an asset.
func (r *Recorder) RecordLastPrice(assetID string, price float64) {
	r.lastPrice.WithLabelValues(assetID).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
