// Package metrics exposes Prometheus instrumentation for the webhook
// ingestion pipeline. Metrics are served on the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestOutcomes counts ingestion results by semantic status
	// (ignored, duplicate, success, error).
	IngestOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_outcomes_total",
			Help: "Webhook ingestion outcomes by status",
		},
		[]string{"status"},
	)

	// AttendanceRecorded counts first-of-day check-ins.
	AttendanceRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_recorded_total",
			Help: "Attendance entries created (first message of a day)",
		},
	)

	// WebhookRequestDuration tracks webhook handling latency.
	WebhookRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_request_duration_seconds",
			Help:    "Time spent handling a webhook delivery",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)
)
