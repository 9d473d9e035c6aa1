// Package metrics registers the storefront's Prometheus collectors
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ingestionRuns counts ingestion runs by final status.
	ingestionRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_ingestion_runs_total",
		Help: "Total number of catalog ingestion runs by status",
	}, []string{"status"}) // status: completed, failed, rejected

	// ingestionDuration tracks how long a full ingestion run takes.
	ingestionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_ingestion_duration_seconds",
		Help:    "Time taken by a catalog ingestion run",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// skippedRecords counts feed records rejected by the normalizer.
	skippedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_ingestion_skipped_records_total",
		Help: "Total number of feed records skipped by reason",
	}, []string{"reason"})

	// catalogProducts is the size of the active catalog.
	catalogProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_catalog_products",
		Help: "Number of products in the active catalog",
	})

	// hydrations counts startup catalog loads by the tier that served them.
	hydrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_hydrations_total",
		Help: "Total number of catalog hydrations by source",
	}, []string{"source"}) // source: remote, local, default, failed

	// remoteFailures counts remote store errors by operation and kind.
	remoteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_remote_failures_total",
		Help: "Total number of remote catalog store failures",
	}, []string{"op", "kind"}) // kind: denied, unreachable, disabled

	// checkouts counts checkout sessions by outcome.
	checkouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkouts_total",
		Help: "Total number of checkout hand-offs by outcome",
	}, []string{"outcome"})

	// assistantRequests counts assistant queries by result.
	assistantRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_assistant_requests_total",
		Help: "Total number of assistant queries by result",
	}, []string{"result"}) // result: answered, fallback, disabled
)

// Recorder provides methods to record storefront metrics.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordIngestion records a finished ingestion run.
func (r *Recorder) RecordIngestion(status string, duration time.Duration) {
	ingestionRuns.WithLabelValues(status).Inc()
	if duration > 0 {
		ingestionDuration.Observe(duration.Seconds())
	}
}

// RecordSkipped records one rejected feed record.
func (r *Recorder) RecordSkipped(reason string) {
	skippedRecords.WithLabelValues(reason).Inc()
}

// SetCatalogSize records the size of the active catalog.
func (r *Recorder) SetCatalogSize(n int) {
	catalogProducts.Set(float64(n))
}

// RecordHydration records which tier served the startup catalog.
func (r *Recorder) RecordHydration(source string) {
	hydrations.WithLabelValues(source).Inc()
}

// RecordRemoteFailure records a failed remote store call.
func (r *Recorder) RecordRemoteFailure(op, kind string) {
	remoteFailures.WithLabelValues(op, kind).Inc()
}

// RecordCheckout records a checkout hand-off or terminal outcome.
func (r *Recorder) RecordCheckout(outcome string) {
	checkouts.WithLabelValues(outcome).Inc()
}

// RecordAssistant records an assistant query.
func (r *Recorder) RecordAssistant(result string) {
	assistantRequests.WithLabelValues(result).Inc()
}
