package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/ordering/framework/core"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAdapter() *RESTAdapter {
	return NewRESTAdapter(DefaultRESTConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestNewErrorResponse_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", core.NewError(core.ErrValidation, "bad").WithField("userId"), http.StatusBadRequest, core.ErrValidation},
		{"not found", core.NewError(core.ErrNotFound, "missing"), http.StatusNotFound, core.ErrNotFound},
		{"conflict", core.NewError(core.ErrConflict, "in use"), http.StatusConflict, core.ErrConflict},
		{"already exists", core.NewError(core.ErrAlreadyExists, "dup"), http.StatusConflict, core.ErrAlreadyExists},
		{"tx failed", core.NewError(core.ErrTransactionFailed, "pq: deadlock detected"), http.StatusInternalServerError, core.ErrTransactionFailed},
		{"plain", errors.New("dial tcp 10.0.0.1:5432"), http.StatusInternalServerError, core.ErrInternal},
		{"unknown code", core.NewError("SOMETHING", "x"), http.StatusInternalServerError, core.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := NewErrorResponse(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestNewErrorResponse_HidesServerDetails(t *testing.T) {
	_, body := NewErrorResponse(core.Wrap(errors.New("relation orders does not exist"), core.ErrTransactionFailed, "pg: relation orders does not exist"))
	assert.NotContains(t, body.Error.Message, "relation")

	_, body = NewErrorResponse(errors.New("secret dsn"))
	assert.Equal(t, "internal server error", body.Error.Message)
}

func TestNewErrorResponse_FieldAndDetails(t *testing.T) {
	err := core.NewError(core.ErrValidation, "quantity must be at least 1").
		WithField("orderItems[1].quantity").
		WithDetail("min", 1)

	_, body := NewErrorResponse(err)
	assert.Equal(t, "orderItems[1].quantity", body.Error.Field)
	assert.Equal(t, 1, body.Error.Details["min"])
}

func TestRESTAdapter_RecoveryAndNoRoute(t *testing.T) {
	adapter := newTestAdapter()
	adapter.Group().GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	adapter.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, core.ErrInternal, decodeError(t, w).Code)

	w = httptest.NewRecorder()
	adapter.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestRESTAdapter_MethodNotAllowed(t *testing.T) {
	adapter := newTestAdapter()
	adapter.Group().GET("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	adapter.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/orders", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRESTAdapter_StartStop(t *testing.T) {
	cfg := DefaultRESTConfig()
	cfg.Port = 0
	adapter := NewRESTAdapter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, adapter.Start(context.Background()))
	assert.True(t, adapter.IsRunning())
	require.NoError(t, adapter.Stop(context.Background()))
	assert.False(t, adapter.IsRunning())
}
