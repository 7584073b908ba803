package admin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"labelbus/internal/config"
	"labelbus/internal/constants"
	"labelbus/internal/logger"
	"labelbus/pkg/health"
	"labelbus/pkg/middleware"
	"labelbus/pkg/ratelimit"
	"labelbus/pkg/tracing"
)

type Server struct {
	cfg     config.ServerConfig
	log     logger.Logger
	engine  *gin.Engine
	limiter *ratelimit.Limiter
	server  *http.Server
}

func NewServer(cfg *config.Config, log logger.Logger, handler *Handler, checks *health.CheckerRegistry) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	if cfg.Tracing.Enabled {
		engine.Use(otelgin.Middleware(tracing.ServiceName(cfg), otelgin.WithFilter(traced)))
	}
	engine.Use(middleware.RecoveryMiddleware(log))
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.LoggerMiddleware(log))

	s := &Server{cfg: cfg.Server, log: log, engine: engine}

	if rl := cfg.Server.RateLimit; rl.Enabled {
		s.limiter = ratelimit.New(ratelimit.Config{
			RPS:             rl.RPS,
			Burst:           rl.Burst,
			CleanupInterval: rl.CleanupInterval,
			MaxAge:          rl.MaxAge,
		})
		engine.Use(s.limiter.Middleware())
		log.Infow("Admin rate limiting enabled", "rps", rl.RPS, "burst", rl.Burst)
	}

	engine.GET("/health", func(c *gin.Context) {
		h := checks.Check(c.Request.Context())
		status := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, h)
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.RegisterRoutes(engine)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeoutSeconds,
		WriteTimeout: cfg.Server.WriteTimeoutSeconds,
	}
	return s
}

// traced keeps health checks and metric scrapes out of traces.
func traced(r *http.Request) bool {
	switch r.URL.Path {
	case "/health", "/metrics":
		return false
	}
	return true
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfowCtx(ctx, "Admin server starting", "port", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("admin server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin server shutdown error: %w", err)
	}
	return <-errCh
}
