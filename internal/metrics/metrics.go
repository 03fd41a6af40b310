package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wirechat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wirechat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Dispatch metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wirechat_messages_sent_total",
			Help: "Total messages persisted and dispatched",
		},
		[]string{"route"}, // "server", "direct", "notes" or "join"
	)

	FanoutErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wirechat_fanout_errors_total",
			Help: "Background fan-out failures absorbed by the dispatcher",
		},
		[]string{"stage"}, // "touch", "notify" or "push"
	)

	FanoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wirechat_fanout_duration_seconds",
			Help:    "Time spent in the background phase of a send",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	NotificationsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wirechat_notifications_written_total",
			Help: "Total in-app notification counters bumped",
		},
	)

	PushesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wirechat_pushes_sent_total",
			Help: "Total push payloads handed to the transport",
		},
	)

	// Registry metrics
	SessionsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wirechat_sessions_connected",
			Help: "Live WebSocket sessions",
		},
	)

	EventsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wirechat_events_emitted_total",
			Help: "Events queued to sessions",
		},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wirechat_events_dropped_total",
			Help: "Events not delivered to a session",
		},
		[]string{"reason"}, // "gone" or "slow_consumer"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wirechat_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
