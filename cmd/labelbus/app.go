package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"labelbus/internal/admin"
	"labelbus/internal/config"
	"labelbus/internal/ingest"
	"labelbus/internal/logger"
	"labelbus/pkg/bootstrap"
	"labelbus/pkg/health"
	"labelbus/pkg/metrics"
)

type App struct {
	*bootstrap.Base
	input io.Reader
	admin *admin.Server
}

func NewApp(cfg *config.Config, log logger.Logger, input io.Reader) *App {
	return &App{
		Base:  bootstrap.NewBase(cfg, log),
		input: input,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitTracing(); err != nil {
		return err
	}

	a.InitHub()

	if err := a.InitRoutes(); err != nil {
		return err
	}

	if a.Config.Server.Enabled {
		metrics.RegisterAdminMetrics()
		handler := admin.NewHandler(a.Router, a.Logger)
		a.admin = admin.NewServer(a.Config, a.Logger, handler, a.healthChecks())
	}

	a.Logger.InfowCtx(ctx, "Initialized", "routes", len(a.Router.Routes()), "admin", a.admin != nil)
	return nil
}

func (a *App) healthChecks() *health.CheckerRegistry {
	registry := health.NewCheckerRegistry()

	registry.Register(health.NewFuncChecker("routes", func(context.Context) error {
		for _, r := range a.Router.Routes() {
			if !r.Attached {
				return fmt.Errorf("route %s is detached", r.Name)
			}
		}
		return nil
	}))

	registry.Register(health.NewFuncChecker("circuit_breakers", func(context.Context) error {
		for _, info := range a.Router.Routes() {
			route, _ := a.Router.Route(info.Name)
			for _, b := range route.Breakers {
				if b.State() == gobreaker.StateOpen {
					return fmt.Errorf("circuit %s is open: %w", b.Name(), health.ErrDegraded)
				}
			}
		}
		return nil
	}))

	return registry
}

// Run routes the input until it is exhausted. With the admin server enabled
// it keeps serving until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.admin != nil {
		g.Go(func() error {
			return a.admin.Run(gCtx)
		})
	}

	if a.input != nil {
		g.Go(func() error {
			levels := a.Hub.Logger().Level
			reader := ingest.NewReader(a.Hub, levels, a.Logger)

			stats, err := reader.Read(gCtx, a.input)
			a.Logger.InfowCtx(gCtx, "Input finished",
				"lines", stats.Lines,
				"sent", stats.Sent,
				"malformed", stats.Malformed,
				"failed", stats.Failed,
			)
			return err
		})
	}

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Base.Shutdown(ctx, nil)
}
