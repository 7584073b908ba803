package constants

import "time"

const (
	ServiceName      = "labelbus"
	DefaultAdminPort = 9464
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultCollectorCapacity = 1000
	DefaultRedaction         = "[REDACTED]"
)

const (
	MatchAll        = "all"
	MatchLabels     = "labels"
	MatchCondition  = "condition"
	MatchExpression = "expression"
)

const (
	SinkLog       = "log"
	SinkJSON      = "json"
	SinkCollector = "collector"
	SinkDiscard   = "discard"
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
	FallbackError = "error"
)

const (
	RouteStatusDelivered = "delivered"
	RouteStatusFailed    = "failed"
	RouteStatusReceived  = "received"
)
