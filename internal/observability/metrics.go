// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	submitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whale_alert",
		Subsystem: "ledger",
		Name:      "submits_total",
		Help:      "Transaction submissions by outcome (accepted, duplicate, rejected)",
	}, []string{"status"})

	alertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whale_alert",
		Subsystem: "emitter",
		Name:      "alerts_total",
		Help:      "Terminal enrichment transitions by status",
	}, []string{"status"})

	redrivesEnriched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "whale_alert",
		Subsystem: "emitter",
		Name:      "redrive_enriched_total",
		Help:      "Transactions moved from unresolvable to enriched by re-drive",
	})

	priceLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "whale_alert",
		Subsystem: "emitter",
		Name:      "price_lookup_duration_seconds",
		Help:      "Duration of as-of price lookups",
		Buckets:   prometheus.DefBuckets,
	})

	feedSamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whale_alert",
		Subsystem: "feed",
		Name:      "samples_total",
		Help:      "Samples recorded by feed collaborators",
	}, []string{"kind"})
)

// RecordSubmit counts a ledger submit outcome.
func RecordSubmit(status string) {
	submitsTotal.WithLabelValues(status).Inc()
}

// RecordAlert counts a terminal enrichment transition.
func RecordAlert(status string) {
	alertsTotal.WithLabelValues(status).Inc()
}

// RecordRedrive counts transactions enriched by a re-drive pass.
func RecordRedrive(enriched int) {
	redrivesEnriched.Add(float64(enriched))
}

// ObservePriceLookup records the duration of one as-of price lookup.
func ObservePriceLookup(seconds float64) {
	priceLookupDuration.Observe(seconds)
}

// RecordFeedSample counts a sample recorded by a feed collaborator.
func RecordFeedSample(kind string) {
	feedSamplesTotal.WithLabelValues(kind).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
