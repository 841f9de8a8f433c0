package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelquest/travelquest-hub/pkg/logger"
)

type fakePinger struct {
	name string
	err  error
}

func (f fakePinger) Name() string                   { return f.name }
func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func serve(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestCompositeHealthChecker(t *testing.T) {
	hc := NewCompositeHealthChecker("1.2.3")

	status := hc.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "No health checks registered", status.Message)

	hc.AddPinger(fakePinger{name: "postgres"})
	hc.AddPinger(fakePinger{name: "redis", err: errors.New("connection refused")})

	status = hc.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, "Some checks failed: redis", status.Message)
	require.Len(t, status.Checks, 2)
	assert.True(t, status.Checks["postgres"].Healthy)
	assert.Equal(t, "connection refused", status.Checks["redis"].Message)

	hc.RemoveCheck("redis")
	assert.True(t, hc.Check(context.Background()).Healthy)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	hc := NewCompositeHealthChecker("")
	hc.SetTimeout(20 * time.Millisecond)
	hc.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := hc.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Message)
}

func TestServer_Endpoints(t *testing.T) {
	healthy := NewCompositeHealthChecker("v1")
	healthy.AddPinger(fakePinger{name: "postgres"})

	broken := NewCompositeHealthChecker("v1")
	broken.AddPinger(fakePinger{name: "postgres", err: errors.New("down")})

	tests := []struct {
		name   string
		health HealthChecker
		path   string
		code   int
		field  string
		want   interface{}
	}{
		{name: "live", health: broken, path: "/live", code: http.StatusOK, field: "status", want: "alive"},
		{name: "ready", health: healthy, path: "/ready", code: http.StatusOK, field: "status", want: "ready"},
		{name: "not ready", health: broken, path: "/ready", code: http.StatusServiceUnavailable, field: "status", want: "not_ready"},
		{name: "health ok", health: healthy, path: "/health", code: http.StatusOK, field: "healthy", want: true},
		{name: "health failing", health: broken, path: "/healthz", code: http.StatusServiceUnavailable, field: "healthy", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.RequestLogging = true
			s := NewServer(cfg, tt.health, logger.Discard())

			rec := serve(t, s, tt.path)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body[tt.field])
		})
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	s := NewServer(DefaultConfig(), nil, logger.Discard())
	assert.Equal(t, http.StatusNotFound, serve(t, s, "/api/v1/leaderboard").Code)
}

func TestServer_ShutdownWhenNotRunning(t *testing.T) {
	s := NewServer(DefaultConfig(), nil, logger.Discard())
	assert.False(t, s.IsRunning())
	assert.Zero(t, s.Uptime())
	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestServer_Stats(t *testing.T) {
	s := NewServer(DefaultConfig(), nil, logger.Discard())

	rec := serve(t, s, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	published := 0
	s.AddStats("event_bus", func() any {
		published++
		return map[string]int{"total_published": published}
	})
	s.AddStats("ignored", nil)

	rec = serve(t, s, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]map[string]int{"event_bus": {"total_published": 1}}, body)
}
