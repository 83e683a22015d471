package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthRegistry_AllHealthy(t *testing.T) {
	r := NewHealthRegistry(time.Second)
	r.Register(NewHealthCheck("db", func(ctx context.Context) error { return nil }))

	result := r.Run(context.Background())
	assert.Equal(t, "healthy", result.Status)
	assert.Equal(t, "healthy", result.Checks["db"].Status)
}

func TestHealthRegistry_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := NewHealthRegistry(time.Second)
	r.Register(NewHealthCheck("db", func(ctx context.Context) error { return nil }))
	r.Register(NewHealthCheck("cache", func(ctx context.Context) error { return errors.New("connection refused") }))

	router := gin.New()
	router.GET("/healthz", r.Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body HealthCheckResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["cache"].Message)
	assert.Equal(t, "healthy", body.Checks["db"].Status)
}

func TestHealthRegistry_CheckTimeout(t *testing.T) {
	r := NewHealthRegistry(10 * time.Millisecond)
	r.Register(NewHealthCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	result := r.Run(context.Background())
	assert.Equal(t, "unhealthy", result.Status)
}

func TestCorrelationIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(CorrelationIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		seen = ExtractCorrelationID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get(CorrelationIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(CorrelationIDHeader))
}

func TestTraceCommand_PropagatesError(t *testing.T) {
	want := errors.New("boom")
	err := TraceCommand(context.Background(), "CreateOrder", func(ctx context.Context) error { return want })
	assert.ErrorIs(t, err, want)
}
