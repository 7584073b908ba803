package guard

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"labelbus/internal/logger"
	"labelbus/pkg/errors"
	"labelbus/pkg/metrics"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2,
		MaxElapsedTime:  time.Second,
	}
}

func TestRecover(t *testing.T) {
	r := Recover(func(context.Context, *models.Message) error {
		panic("boom")
	})

	err := r(context.Background(), models.NewMessage(30, nil, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInternal)
	assert.Contains(t, err.Error(), "boom")

	ok := Recover(func(context.Context, *models.Message) error { return nil })
	assert.NoError(t, ok(context.Background(), models.NewMessage(30, nil, nil)))
}

func TestIsolate_SiblingsStillRun(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	log := logger.FromZap(zap.New(core))

	s := stream.New()
	s.AddReceiver(Isolate(log, "failing", func(context.Context, *models.Message) error {
		return stderrors.New("disk full")
	}))
	delivered := false
	s.AddReceiver(func(context.Context, *models.Message) error {
		delivered = true
		return nil
	})

	require.NoError(t, s.Send(context.Background(), models.NewMessage(30, nil, "x")))
	assert.True(t, delivered)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Receiver failed", entry.Message)
	assert.Equal(t, "failing", entry.ContextMap()["receiver"])
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name          string
		failures      int
		attempts      int
		err           error
		expectErr     bool
		expectedCalls int
	}{
		{name: "first try", failures: 0, attempts: 3, expectedCalls: 1},
		{name: "recovers", failures: 2, attempts: 3, expectedCalls: 3},
		{name: "gives up", failures: 5, attempts: 3, expectErr: true, expectedCalls: 3},
		{name: "fatal not retried", failures: 5, attempts: 3, err: errors.ErrValidation, expectErr: true, expectedCalls: 1},
		{name: "open circuit not retried", failures: 5, attempts: 3, err: errors.ErrCircuitOpen, expectErr: true, expectedCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			failWith := tt.err
			if failWith == nil {
				failWith = stderrors.New("transient")
			}
			r := Retry("retry-test", fastPolicy(tt.attempts), func(context.Context, *models.Message) error {
				calls++
				if calls <= tt.failures {
					return failWith
				}
				return nil
			}, nil)

			err := r(context.Background(), models.NewMessage(30, nil, nil))
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedCalls, calls)
		})
	}
}

func TestRetry_OnRetryAndMetrics(t *testing.T) {
	metrics.RegisterGuardMetrics()
	before := testutil.ToFloat64(metrics.RetryAttemptsTotal.WithLabelValues("retry-metrics"))

	var seen []int
	r := Retry("retry-metrics", fastPolicy(3), func(context.Context, *models.Message) error {
		return stderrors.New("down")
	}, func(attempt int, err error, next time.Duration) {
		seen = append(seen, attempt)
		assert.EqualError(t, err, "down")
		assert.Greater(t, next, time.Duration(0))
	})

	assert.Error(t, r(context.Background(), models.NewMessage(30, nil, nil)))
	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.RetryAttemptsTotal.WithLabelValues("retry-metrics")))
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	r := Retry("retry-cancel", Policy{MaxAttempts: 5, InitialInterval: time.Second, MaxInterval: time.Second, Multiplier: 1}, func(context.Context, *models.Message) error {
		calls++
		return stderrors.New("down")
	}, nil)

	assert.Error(t, r(ctx, models.NewMessage(30, nil, nil)))
	assert.LessOrEqual(t, calls, 1)
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
	assert.Equal(t, time.Second, p.Delay(10))
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	metrics.RegisterGuardMetrics()

	cfg := DefaultBreakerConfig("breaker-test")
	cfg.Timeout = time.Hour
	var transitions []gobreaker.State
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}
	b := NewBreaker(cfg)
	assert.Equal(t, "breaker-test", b.Name())

	calls := 0
	r := b.Wrap(func(context.Context, *models.Message) error {
		calls++
		return stderrors.New("sink down")
	})

	msg := models.NewMessage(30, nil, nil)
	for i := 0; i < 3; i++ {
		err := r(context.Background(), msg)
		require.Error(t, err)
		assert.False(t, errors.IsCircuitOpen(err))
	}

	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("breaker-test")))

	err := r(context.Background(), msg)
	assert.True(t, errors.IsCircuitOpen(err))
	assert.Equal(t, 3, calls)
}

func TestBreaker_StaysClosedOnSuccess(t *testing.T) {
	b := NewBreaker(DefaultBreakerConfig("breaker-ok"))
	r := b.Wrap(func(context.Context, *models.Message) error { return nil })

	for i := 0; i < 10; i++ {
		require.NoError(t, r(context.Background(), models.NewMessage(30, nil, nil)))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, uint32(10), b.Counts().TotalSuccesses)
}
