package routing

import (
	stderrors "errors"

	"github.com/sony/gobreaker"

	"labelbus/internal/config"
	"labelbus/internal/logger"
	"labelbus/pkg/guard"
	"labelbus/pkg/models"
)

// Normalize converts numbers decoded from configuration to float64, the type
// encoding/json produces for message labels. Slices are converted element by
// element.
func Normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, e := range n {
			out[i] = Normalize(e)
		}
		return out
	default:
		return v
	}
}

func normalizeLabels(in map[string]interface{}) models.Labels {
	out := make(models.Labels, len(in))
	for k, v := range in {
		out[k] = Normalize(v)
	}
	return out
}

func retryPolicy(cfg config.RetryConfig) guard.Policy {
	p := guard.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		p.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		p.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		p.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		p.MaxElapsedTime = cfg.MaxElapsedTime
	}
	return p
}

func breakerConfig(name string, cfg config.CircuitBreakerConfig, log logger.Logger) guard.BreakerConfig {
	bc := guard.DefaultBreakerConfig(name)
	if cfg.MaxRequests > 0 {
		bc.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		bc.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		bc.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 {
		bc.FailureRatio = cfg.FailureRatio
	}
	if cfg.MinRequests > 0 {
		bc.MinRequests = cfg.MinRequests
	}
	bc.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warnw("Circuit breaker state changed", "receiver", name, "from", from.String(), "to", to.String())
	}
	return bc
}

func joinErrors(errs []error) error {
	return stderrors.Join(errs...)
}
