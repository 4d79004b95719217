package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttendanceDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus",
		Name:      "attendance_decisions_total",
		Help:      "Attendance marking decisions by outcome",
	}, []string{"outcome"})

	RecognitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campus",
		Name:      "recognition_duration_seconds",
		Help:      "Duration of calls to the vision service and camera",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"stage"})

	RecognitionJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus",
		Name:      "recognition_jobs_total",
		Help:      "Asynchronous recognition job attempts by result (processed, failed, retried)",
	}, []string{"status"})

	TicketsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus",
		Name:      "tickets_created_total",
		Help:      "Tickets created by category",
	}, []string{"category"})

	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus",
		Name:      "resource_uploads_total",
		Help:      "Resource uploads by storage backend",
	}, []string{"backend"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "campus",
		Name:      "rate_limited_requests_total",
		Help:      "Requests rejected by the rate limiter",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "campus",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "campus",
		Name:      "ws_connections",
		Help:      "Number of active live feed WebSocket connections",
	})
)
