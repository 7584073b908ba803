// Package intercept holds stock stream interceptors. None of them mutate the
// incoming message; they return a copy when they change something.
package intercept

import (
	"context"

	"golang.org/x/time/rate"

	"labelbus/internal/constants"
	"labelbus/pkg/metrics"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
)

// Redact replaces the message value with replacement. With keys, only those
// labels are replaced and the value is left alone.
func Redact(replacement any, keys ...string) stream.Interceptor {
	return func(_ context.Context, msg *models.Message) (*models.Message, error) {
		if len(keys) == 0 {
			out := msg.Clone()
			out.Value = replacement
			return out, nil
		}

		var out *models.Message
		for _, k := range keys {
			if _, ok := msg.Label(k); !ok {
				continue
			}
			if out == nil {
				out = msg.Clone()
			}
			out.Labels[k] = replacement
		}
		if out == nil {
			return msg, nil
		}
		return out, nil
	}
}

// WithLabels adds labels the message does not already carry.
func WithLabels(labels models.Labels) stream.Interceptor {
	fixed := labels.Clone()
	return func(_ context.Context, msg *models.Message) (*models.Message, error) {
		var out *models.Message
		for k, v := range fixed {
			if _, ok := msg.Label(k); ok {
				continue
			}
			if out == nil {
				out = msg.Clone()
			}
			out.Labels[k] = v
		}
		if out == nil {
			return msg, nil
		}
		return out, nil
	}
}

// RateLimit drops messages the limiter does not allow. Drops are counted
// under route.
func RateLimit(route string, limiter *rate.Limiter) stream.Interceptor {
	return func(_ context.Context, msg *models.Message) (*models.Message, error) {
		if !limiter.Allow() {
			metrics.IncRateLimited(route)
			return nil, nil
		}
		return msg, nil
	}
}

// NewLimiter returns a token bucket limiter. A non-positive burst defaults to
// one token per second of rate, at least one.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Count records every message reaching route.
func Count(route string) stream.Interceptor {
	return func(_ context.Context, msg *models.Message) (*models.Message, error) {
		metrics.IncRouteMessages(route, constants.RouteStatusReceived)
		return msg, nil
	}
}
