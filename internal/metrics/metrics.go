// Package metrics defines Prometheus collectors, exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Broadcaster metrics
var (
	// BroadcasterActiveRooms tracks rooms with at least one connected client
	BroadcasterActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcaster_active_rooms",
			Help: "Number of rooms with at least one connected client",
		},
	)

	// BroadcasterConnectedClients tracks connected WebSocket clients across all rooms
	BroadcasterConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcaster_connected_clients_total",
			Help: "Total number of connected WebSocket clients across all rooms",
		},
	)

	// BroadcasterSlowClientsEvicted tracks clients dropped for full send buffers
	BroadcasterSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcaster_slow_clients_evicted_total",
			Help: "Clients evicted because their send buffer was full during a broadcast",
		},
	)

	// BroadcasterStopTimeoutsTotal tracks forced shutdowns of the broadcaster
	BroadcasterStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcaster_stop_timeouts_total",
			Help: "Times broadcaster shutdown exceeded its timeout",
		},
	)
)

// WebSocket metrics
var (
	// WebSocketPingFailures tracks failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Failed WebSocket keepalive pings",
		},
	)

	// WebSocketMessageSendDuration tracks message write latency
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
	)
)

// Estimation metrics
var (
	// EventsTotal tracks dispatched room events by type
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_events_total",
			Help: "Dispatched room events by type",
		},
		[]string{"type"},
	)

	// VotesRecordedTotal tracks successfully persisted votes
	VotesRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "votes_recorded_total",
			Help: "Successfully persisted votes",
		},
	)

	// VotesRateLimitedTotal tracks votes rejected by the rate limiter
	VotesRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "votes_rate_limited_total",
			Help: "Votes rejected by the rate limiter",
		},
	)
)

// Database metrics
var (
	// DBQueryDuration tracks query latency by statement verb
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks failed queries by statement verb
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Failed database queries by statement verb",
		},
		[]string{"query"},
	)
)
