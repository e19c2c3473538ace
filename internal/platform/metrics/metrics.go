// Package metrics registers the service's Prometheus collectors against the
// default registry. They are served on GET /metrics.
//
// HTTP metrics are labelled by route template (e.g. /api/v1/companies/:company_id)
// rather than the raw URL to keep label cardinality bounded.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path"},
	)

	UploadURLsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_urls_issued_total",
			Help: "Signed upload URLs issued, by storage backend.",
		},
		[]string{"backend"},
	)

	// DocketsProcessedTotal is labelled by outcome: completed, duplicate, failed.
	DocketsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dockets_processed_total",
			Help: "Docket ingestion notifications handled, by outcome.",
		},
		[]string{"status"},
	)

	AlertsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compliance_alerts_generated_total",
			Help: "Compliance alerts raised during ingestion, by severity.",
		},
		[]string{"severity"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extraction_duration_seconds",
			Help:    "Latency of calls to the document extraction service, by provider and result.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "result"},
	)

	AlertReadsDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "compliance_alert_reads_degraded_total",
			Help: "Alert reads answered with an empty list because the backend failed.",
		},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Domain events handed to a publisher, by sink and result.",
		},
		[]string{"sink", "result"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
