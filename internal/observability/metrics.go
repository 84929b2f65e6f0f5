package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by command.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harfzaar_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records MongoDB operation latency by operation and collection.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harfzaar_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "collection"})

	// CacheLookups counts read-through cache lookups by cache name and result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harfzaar_cache_lookups_total",
		Help: "Cache lookups by cache and result (hit, miss, error)",
	}, []string{"cache", "result"})

	// AIRequests counts generative model calls by feature and outcome.
	AIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harfzaar_ai_requests_total",
		Help: "Generative model requests by feature and outcome",
	}, []string{"feature", "outcome"})

	// AILatency records generative model latency by feature.
	AILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harfzaar_ai_latency_seconds",
		Help:    "Generative model latency in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"feature"})

	// UsersMarkedIdle counts users flipped to inactive by the activity reaper.
	UsersMarkedIdle = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harfzaar_users_marked_idle_total",
		Help: "Users marked inactive by the activity sweep",
	})

	// WebSocketConnectionsTotal is the gauge of open WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harfzaar_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harfzaar_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harfzaar_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, collection string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
	}
}

// TrackAI returns a function that records the latency and outcome of a model call.
func TrackAI(feature string) func(err error) {
	start := time.Now()
	return func(err error) {
		AILatency.WithLabelValues(feature).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		AIRequests.WithLabelValues(feature, outcome).Inc()
	}
}
