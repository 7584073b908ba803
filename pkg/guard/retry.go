package guard

import (
	"context"
	stderrors "errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"labelbus/pkg/errors"
	"labelbus/pkg/metrics"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  10 * time.Second,
	}
}

func (p Policy) backOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.Multiplier = p.Multiplier
	exp.MaxElapsedTime = p.MaxElapsedTime
	return exp
}

// Delay returns the nominal wait before retry number attempt, without jitter.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxInterval) {
		return p.MaxInterval
	}
	return time.Duration(d)
}

// OnRetry is called before each new attempt.
type OnRetry func(attempt int, err error, next time.Duration)

// Retry calls r again on failure, blocking the sender between attempts.
// Fatal errors and open circuits are not retried.
func Retry(name string, policy Policy, r stream.Receiver, onRetry OnRetry) stream.Receiver {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPolicy().MaxAttempts
	}

	return func(ctx context.Context, msg *models.Message) error {
		b := backoff.WithMaxRetries(backoff.WithContext(policy.backOff(), ctx), uint64(policy.MaxAttempts-1))

		attempt := 0
		operation := func() error {
			attempt++
			err := r(ctx, msg)
			if err == nil {
				return nil
			}

			var fatalErr errors.FatalError
			if stderrors.As(err, &fatalErr) && fatalErr.IsFatal() {
				return backoff.Permanent(err)
			}
			if errors.IsCircuitOpen(err) {
				return backoff.Permanent(err)
			}

			if attempt < policy.MaxAttempts {
				metrics.IncRetryAttempt(name)
				if onRetry != nil {
					onRetry(attempt, err, policy.Delay(attempt-1))
				}
			}
			return err
		}

		return backoff.Retry(operation, b)
	}
}
