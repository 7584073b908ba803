package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"

	"labelbus/internal/config"
	"labelbus/internal/logger"
	"labelbus/internal/routing"
	"labelbus/pkg/cel"
	"labelbus/pkg/hub"
	"labelbus/pkg/metrics"
	"labelbus/pkg/tracing"
)

// Base holds what every labelbus entry point needs: config, logger, the hub
// and the routes attached to it.
type Base struct {
	Config         *config.Config
	Logger         logger.Logger
	Hub            *hub.Hub
	Router         *routing.Router
	TracerProvider *tracing.TracerProvider

	Stdout io.Writer
	Stderr io.Writer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	if sugared, ok := log.(*logger.SugaredLogger); ok {
		sugared.SetServiceName(cfg.Hub.ServiceName)
	}
	return &Base{
		Config: cfg,
		Logger: log,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (b *Base) InitTracing() error {
	tp, err := tracing.Init(b.Config)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	b.TracerProvider = tp
	return nil
}

// InitHub creates the hub and applies the hub-wide severity floor.
func (b *Base) InitHub(opts ...hub.Option) {
	metrics.RegisterBusMetrics()
	metrics.RegisterGuardMetrics()

	opts = append([]hub.Option{
		hub.WithLogger(b.Logger),
		hub.WithLabels(b.Config.Hub.Labels),
	}, opts...)
	b.Hub = hub.New(opts...)

	if b.Config.Hub.MinLevel != nil {
		b.Hub.Messages().SetLogLevel(*b.Config.Hub.MinLevel)
	}
}

func (b *Base) InitRoutes() error {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	router, err := routing.Build(b.Hub.Messages(), b.Config.Routes, routing.Deps{
		Logger:         b.Logger,
		Evaluator:      evaluator,
		Retry:          b.Config.Retry,
		CircuitBreaker: b.Config.CircuitBreaker,
		Stdout:         b.Stdout,
		Stderr:         b.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to build routes: %w", err)
	}
	b.Router = router
	return nil
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down labelbus...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if b.Router != nil {
		b.Router.Close()
	}

	if b.TracerProvider != nil {
		if err := b.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("labelbus exited successfully")
	return nil
}
