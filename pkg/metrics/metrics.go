package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelbus_messages_sent_total",
			Help: "Total number of messages sent into the hub (count)",
		},
		[]string{"level"},
	)

	RouteMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelbus_route_messages_total",
			Help: "Total number of messages seen by a route, by outcome (count)",
		},
		[]string{"route", "status"},
	)

	RouteDeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labelbus_route_delivery_duration_ms",
			Help:    "Time spent in a route's sinks in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"route"},
	)

	ActiveRoutes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "labelbus_active_routes",
			Help: "Number of routes attached to the hub (count)",
		},
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelbus_rate_limited_total",
			Help: "Total number of messages dropped by a rate limit interceptor (count)",
		},
		[]string{"route"},
	)

	ExpressionEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelbus_expression_evaluations_total",
			Help: "Total number of expression filter evaluations (count)",
		},
		[]string{"result"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelbus_fallback_usage_total",
			Help: "Total number of times an expression fallback strategy was used (count)",
		},
		[]string{"strategy"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelbus_retry_attempts_total",
			Help: "Total number of receiver retry attempts (count)",
		},
		[]string{"receiver"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "labelbus_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelbus_circuit_breaker_requests_total",
			Help: "Total number of deliveries through a circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelbus_circuit_breaker_failures_total",
			Help: "Total number of failed deliveries through a circuit breaker (count)",
		},
		[]string{"name"},
	)
)

var AdminRateLimitTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "labelbus_admin_rate_limit_requests_total",
		Help: "Total number of admin API requests seen by the rate limiter (count)",
	},
	[]string{"result"},
)

var (
	busOnce   sync.Once
	guardOnce sync.Once
	adminOnce sync.Once
)

func RegisterBusMetrics() {
	busOnce.Do(func() {
		prometheus.MustRegister(MessagesSentTotal)
		prometheus.MustRegister(RouteMessagesTotal)
		prometheus.MustRegister(RouteDeliveryDuration)
		prometheus.MustRegister(ActiveRoutes)
		prometheus.MustRegister(RateLimitedTotal)
		prometheus.MustRegister(ExpressionEvaluationsTotal)
		prometheus.MustRegister(FallbackUsageTotal)
	})
}

func RegisterGuardMetrics() {
	guardOnce.Do(func() {
		prometheus.MustRegister(RetryAttemptsTotal)
		prometheus.MustRegister(CircuitBreakerState)
		prometheus.MustRegister(CircuitBreakerRequests)
		prometheus.MustRegister(CircuitBreakerFailures)
	})
}

func RegisterAdminMetrics() {
	adminOnce.Do(func() {
		prometheus.MustRegister(AdminRateLimitTotal)
	})
}

func IncMessagesSent(level int) {
	MessagesSentTotal.WithLabelValues(strconv.Itoa(level)).Inc()
}

func IncRouteMessages(route, status string) {
	RouteMessagesTotal.WithLabelValues(route, status).Inc()
}

func ObserveRouteDelivery(route string, duration time.Duration) {
	RouteDeliveryDuration.WithLabelValues(route).Observe(float64(duration.Microseconds()) / 1000)
}

func SetActiveRoutes(count int) {
	ActiveRoutes.Set(float64(count))
}

func IncRateLimited(route string) {
	RateLimitedTotal.WithLabelValues(route).Inc()
}

func IncExpressionEvaluation(result string) {
	ExpressionEvaluationsTotal.WithLabelValues(result).Inc()
}

func IncFallbackUsage(strategy string) {
	FallbackUsageTotal.WithLabelValues(strategy).Inc()
}

func IncRetryAttempt(receiver string) {
	RetryAttemptsTotal.WithLabelValues(receiver).Inc()
}
