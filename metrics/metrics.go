package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redis Operations Metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoreboard_redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoreboard_redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scoreboard_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Pool Metrics
var (
	PoolProducers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scoreboard_pool_producers_current",
			Help: "Number of producers registered with the connection pool",
		},
	)

	// PoolBroadcastsTotal counts broadcasts handed to the pool
	PoolBroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoreboard_pool_broadcasts_total",
			Help: "Total broadcasts fanned out through the connection pool",
		},
	)

	// PoolBroadcastSkipped counts per-producer deliveries dropped because the queue was full or closed
	PoolBroadcastSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_pool_broadcast_skipped_total",
			Help: "Broadcast deliveries skipped by reason (full/closed)",
		},
		[]string{"reason"},
	)
)

// WebSocket Metrics
var (
	WebSocketConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scoreboard_websocket_connections_current",
			Help: "Current number of open websocket sessions",
		},
	)

	// WebSocketConnectionsTotal tracks upgrade attempts by result
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_websocket_connections_total",
			Help: "Total websocket upgrade attempts by result (success/error)",
		},
		[]string{"result"},
	)

	WebSocketConnectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoreboard_websocket_connection_duration_seconds",
			Help:    "Websocket session duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		},
	)

	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoreboard_websocket_message_send_duration_seconds",
			Help:    "Websocket frame write duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// WebSocketDecodeErrors counts inbound frames that were dropped
	WebSocketDecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoreboard_websocket_decode_errors_total",
			Help: "Inbound frames dropped because they could not be decoded",
		},
	)

	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoreboard_websocket_ping_failures_total",
			Help: "Total websocket ping failures (peer not responding)",
		},
	)
)

// Dispatch Metrics
var (
	// DispatchTotal counts dispatched messages by method and result (ok/not_found/unsupported/error)
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_dispatch_total",
			Help: "Dispatched messages by method and result",
		},
		[]string{"method", "result"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoreboard_dispatch_duration_seconds",
			Help:    "Dispatch duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"method"},
	)
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)

	// HTTPRateLimited counts requests rejected by the per-client limiter
	HTTPRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoreboard_http_rate_limited_total",
			Help: "HTTP requests rejected by the rate limiter",
		},
	)
)

// Database Metrics
var (
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoreboard_db_query_duration_seconds",
			Help:    "Relational store query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_db_errors_total",
			Help: "Relational store errors by query",
		},
		[]string{"query"},
	)
)

// Webhook Metrics
var (
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_webhook_deliveries_total",
			Help: "Webhook deliveries by result (success/error)",
		},
		[]string{"result"},
	)
)
