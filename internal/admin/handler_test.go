package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelbus/internal/config"
	"labelbus/internal/logger"
	"labelbus/internal/routing"
	"labelbus/pkg/health"
	"labelbus/pkg/models"
	"labelbus/pkg/stream"
)

func newTestServer(t *testing.T, checks *health.CheckerRegistry) (http.Handler, *stream.Stream) {
	t.Helper()

	root := stream.New()
	router, err := routing.Build(root, []config.RouteConfig{
		{Name: "all", Sinks: []config.SinkConfig{{Type: "collector", Capacity: 10}}},
		{
			Name:  "guarded",
			Guard: config.GuardConfig{CircuitBreaker: true},
			Sinks: []config.SinkConfig{{Type: "discard"}},
		},
	}, routing.Deps{})
	require.NoError(t, err)
	t.Cleanup(router.Close)

	if checks == nil {
		checks = health.NewCheckerRegistry()
	}
	cfg := &config.Config{Server: config.ServerConfig{Port: 0}}
	srv := NewServer(cfg, logger.NopLogger(), NewHandler(router, logger.NopLogger()), checks)
	return srv.Handler(), root
}

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestListRoutes(t *testing.T) {
	h, _ := newTestServer(t, nil)

	w := get(t, h, http.MethodGet, "/api/v1/routes")
	require.Equal(t, http.StatusOK, w.Code)

	var infos []routing.RouteInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "all", infos[0].Name)
	assert.Equal(t, "all", infos[0].Filter)
	assert.True(t, infos[0].Attached)
}

func TestGetRoute(t *testing.T) {
	h, _ := newTestServer(t, nil)

	w := get(t, h, http.MethodGet, "/api/v1/routes/guarded")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"guarded"`)

	w = get(t, h, http.MethodGet, "/api/v1/routes/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestMessages(t *testing.T) {
	h, root := newTestServer(t, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, root.Send(context.Background(), models.NewMessage(30, models.Labels{"n": i}, "m")))
	}

	w := get(t, h, http.MethodGet, "/api/v1/routes/all/messages?limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var resp MessagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(3), resp.Total)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, float64(2), resp.Messages[1].Labels["n"])

	assert.Equal(t, http.StatusBadRequest, get(t, h, http.MethodGet, "/api/v1/routes/all/messages?limit=x").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, http.MethodGet, "/api/v1/routes/guarded/messages").Code)

	assert.Equal(t, http.StatusNoContent, get(t, h, http.MethodDelete, "/api/v1/routes/all/messages").Code)
	w = get(t, h, http.MethodGet, "/api/v1/routes/all/messages")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Messages)
}

func TestListBreakers(t *testing.T) {
	h, _ := newTestServer(t, nil)

	w := get(t, h, http.MethodGet, "/api/v1/routes/guarded/breakers")
	require.Equal(t, http.StatusOK, w.Code)

	var infos []BreakerInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "guarded/discard[0]", infos[0].Name)
	assert.Equal(t, "closed", infos[0].State)
}

func TestHealthAndMetrics(t *testing.T) {
	checks := health.NewCheckerRegistry()
	h, _ := newTestServer(t, checks)

	assert.Equal(t, http.StatusOK, get(t, h, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, get(t, h, http.MethodGet, "/metrics").Code)

	checks.Register(health.NewFuncChecker("routes", func(context.Context) error {
		return errors.New("detached")
	}))
	w := get(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}

func TestTraced(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "/health", want: false},
		{path: "/metrics", want: false},
		{path: "/api/v1/routes", want: true},
		{path: "/api/v1/routes/all/messages", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, traced(req))
		})
	}
}
