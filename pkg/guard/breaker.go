package guard

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/sony/gobreaker"

	"labelbus/pkg/errors"
	"labelbus/pkg/metrics"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
)

type BreakerConfig struct {
	Name          string
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	FailureRatio  float64
	MinRequests   uint32
	OnStateChange func(name string, from, to gobreaker.State)
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

// Breaker stops calling a receiver after repeated failures and probes it
// again once the timeout has passed.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests || counts.Requests == 0 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
	}

	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		setBreakerState(name, to)
		if cfg.OnStateChange != nil {
			cfg.OnStateChange(name, from, to)
		}
	}

	cb := gobreaker.NewCircuitBreaker(settings)
	setBreakerState(cfg.Name, cb.State())

	return &Breaker{cb: cb}
}

// Wrap returns r guarded by the breaker. While the circuit is open r is not
// called and the returned error matches errors.ErrCircuitOpen.
func (b *Breaker) Wrap(r stream.Receiver) stream.Receiver {
	return func(ctx context.Context, msg *models.Message) error {
		_, err := b.cb.Execute(func() (interface{}, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, r(ctx, msg)
		})

		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.cb.Name(), "rejected").Inc()
			return errors.ErrCircuitOpen.WithCause(err).WithDetail("breaker", b.cb.Name())
		}

		metrics.CircuitBreakerRequests.WithLabelValues(b.cb.Name(), b.cb.State().String()).Inc()
		if err != nil {
			metrics.CircuitBreakerFailures.WithLabelValues(b.cb.Name()).Inc()
		}
		return err
	}
}

func (b *Breaker) Name() string {
	return b.cb.Name()
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

func setBreakerState(name string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateClosed:
		v = 0
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(v)
}
