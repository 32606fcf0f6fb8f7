package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ridepair"

var (
	RideTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_transitions_total", Help: "Lifecycle operations by result"},
		[]string{"operation", "result"},
	)
	StaleCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_stale_commits_total", Help: "Commits rejected by a version or status guard"},
		[]string{"operation"},
	)
	OTPFailures = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_otp_failures_total", Help: "Rejected ride code submissions"},
	)

	NotificationsQueued = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_queued_total", Help: "Notifications accepted by the outbox"},
	)
	NotificationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_dropped_total", Help: "Notifications dropped because the outbox was full"},
	)
	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notification_deliveries_total", Help: "Notification deliveries by sink and result"},
		[]string{"sink", "result"},
	)

	SuggestionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "suggestion_requests_total", Help: "Route suggestion calls by result"},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "websocket_connections", Help: "Open websocket connections"},
	)
)

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
