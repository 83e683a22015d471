// Package transport предоставляет REST транспорт на базе gin.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/framework/observability"
)

// RESTConfig конфигурация для REST адаптера
type RESTConfig struct {
	Port            int
	BasePath        string
	ShutdownTimeout time.Duration
	EnableTracing   bool
	ServiceName     string
}

// DefaultRESTConfig возвращает конфигурацию REST по умолчанию
func DefaultRESTConfig() RESTConfig {
	return RESTConfig{
		Port:            8080,
		BasePath:        "",
		ShutdownTimeout: 30 * time.Second,
		ServiceName:     "ordering",
	}
}

// RESTAdapter HTTP сервер с общими middleware и маппингом ошибок
type RESTAdapter struct {
	config  RESTConfig
	router  *gin.Engine
	logger  *slog.Logger
	server  *http.Server
	errCh   chan error
	running bool
	mu      sync.RWMutex
}

// NewRESTAdapter создает новый REST адаптер
func NewRESTAdapter(config RESTConfig, logger *slog.Logger) *RESTAdapter {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(logger))
	if config.EnableTracing {
		router.Use(observability.HTTPTracingMiddleware(config.ServiceName))
	}
	router.Use(observability.CorrelationIDMiddleware(), RequestLogger(logger))
	router.NoRoute(func(c *gin.Context) {
		WriteError(c, core.NewError(core.ErrNotFound, "route not found"))
	})
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: ErrorBody{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"}})
	})

	return &RESTAdapter{
		config: config,
		router: router,
		logger: logger,
	}
}

// Engine возвращает gin engine для регистрации служебных маршрутов
func (r *RESTAdapter) Engine() *gin.Engine {
	return r.router
}

// Group возвращает группу маршрутов с BasePath
func (r *RESTAdapter) Group() *gin.RouterGroup {
	return r.router.Group(r.config.BasePath)
}

// Handler возвращает http.Handler (используется в тестах)
func (r *RESTAdapter) Handler() http.Handler {
	return r.router
}

// Start запускает HTTP сервер (реализация core.Lifecycle)
func (r *RESTAdapter) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", r.config.Port))
	if err != nil {
		return core.Wrap(err, core.ErrInitializationFailed, "failed to listen")
	}

	r.mu.Lock()
	r.server = &http.Server{
		Handler:           r.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	r.errCh = make(chan error, 1)
	r.running = true
	server, errCh := r.server, r.errCh
	r.mu.Unlock()

	r.logger.Info("http server listening", slog.String("addr", listener.Addr().String()))

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("http server failed", slog.Any("error", err))
			errCh <- err
		}
		close(errCh)
	}()

	return nil
}

// Errors возвращает канал фатальных ошибок сервера
func (r *RESTAdapter) Errors() <-chan error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.errCh
}

// Stop останавливает сервер, дожидаясь активных запросов (реализация core.Lifecycle)
func (r *RESTAdapter) Stop(ctx context.Context) error {
	r.mu.Lock()
	server := r.server
	r.running = false
	r.mu.Unlock()

	if server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, r.config.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// IsRunning проверяет, запущен ли адаптер (реализация core.Lifecycle)
func (r *RESTAdapter) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Name возвращает имя компонента (реализация core.Component)
func (r *RESTAdapter) Name() string {
	return "rest-adapter"
}

// Type возвращает тип компонента (реализация core.Component)
func (r *RESTAdapter) Type() core.ComponentType {
	return core.ComponentTypeTransport
}

// RequestLogger логирует каждый HTTP запрос через slog
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		logger.LogAttrs(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("correlation_id", c.Writer.Header().Get(observability.CorrelationIDHeader)),
		)
	}
}

// RecoveryMiddleware превращает панику в ответ 500 без деталей
func RecoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(c.Request.Context(), "panic in http handler", slog.Any("panic", r), slog.String("path", c.Request.URL.Path))
				WriteError(c, core.NewError(core.ErrInternal, fmt.Sprintf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}
