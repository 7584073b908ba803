package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelbus/internal/config"
	"labelbus/internal/logger"
)

func TestApp_RoutesInput(t *testing.T) {
	cfg := &config.Config{
		Hub: config.HubConfig{ServiceName: "test"},
		Routes: []config.RouteConfig{
			{
				Name:  "prod-errors",
				Match: config.MatchConfig{Kind: "labels", Labels: map[string]interface{}{"env": "prod"}},
				Sinks: []config.SinkConfig{{Type: "json"}},
			},
		},
	}
	minLevel := 50
	cfg.Routes[0].MinLevel = &minLevel

	input := strings.Join([]string{
		`{"level":"error","labels":{"env":"prod"},"value":"db down"}`,
		`{"level":"info","labels":{"env":"prod"},"value":"started"}`,
		`{"level":"error","labels":{"env":"dev"},"value":"dev noise"}`,
	}, "\n")

	var out bytes.Buffer
	app := NewApp(cfg, logger.NopLogger(), strings.NewReader(input))
	app.Stdout = &out

	require.NoError(t, app.Initialize(context.Background()))
	require.NoError(t, app.Run(context.Background()))
	require.NoError(t, app.Shutdown(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"value":"db down"`)
	assert.Contains(t, lines[0], `"log_level":50`)
	assert.Contains(t, lines[0], `"id":`)
}

func TestApp_HealthChecks(t *testing.T) {
	cfg := &config.Config{
		Routes: []config.RouteConfig{
			{Name: "all", Guard: config.GuardConfig{CircuitBreaker: true}, Sinks: []config.SinkConfig{{Type: "discard"}}},
		},
	}
	app := NewApp(cfg, logger.NopLogger(), nil)
	require.NoError(t, app.Initialize(context.Background()))

	h := app.healthChecks().Check(context.Background())
	assert.Equal(t, "healthy", string(h.Status))

	app.Router.Close()
	h = app.healthChecks().Check(context.Background())
	assert.Equal(t, "unhealthy", string(h.Status))
}
