package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StudentsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gradebook_students_processed_total",
			Help: "Total number of student rows merged into gradebook pages",
		},
	)

	NotifyPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gradebook_notify_published_total",
			Help: "Gradebook change notifications by event type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
