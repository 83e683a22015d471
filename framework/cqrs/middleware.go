// Package cqrs предоставляет middleware для обработчиков команд и запросов.
package cqrs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/framework/metrics"
	"github.com/akriventsev/ordering/framework/observability"
	"github.com/akriventsev/ordering/framework/transport"
)

// CommandMiddleware middleware для команд
type CommandMiddleware = transport.CommandInterceptorFunc

// QueryMiddleware middleware для запросов
type QueryMiddleware = transport.QueryInterceptorFunc

// LoggingCommandMiddleware логирует выполнение команд.
// Ошибки клиента логируются на уровне Info, остальные на уровне Error.
func LoggingCommandMiddleware(logger *slog.Logger) CommandMiddleware {
	return func(ctx context.Context, cmd transport.Command, next func(ctx context.Context, cmd transport.Command) error) error {
		start := time.Now()
		err := next(ctx, cmd)
		logOutcome(ctx, logger, "command", cmd.CommandName(), time.Since(start), err)
		return err
	}
}

// LoggingQueryMiddleware логирует выполнение запросов
func LoggingQueryMiddleware(logger *slog.Logger) QueryMiddleware {
	return func(ctx context.Context, q transport.Query, next func(ctx context.Context, q transport.Query) (interface{}, error)) (interface{}, error) {
		start := time.Now()
		result, err := next(ctx, q)
		logOutcome(ctx, logger, "query", q.QueryName(), time.Since(start), err)
		return result, err
	}
}

func logOutcome(ctx context.Context, logger *slog.Logger, kind, name string, duration time.Duration, err error) {
	attrs := []any{
		slog.String(kind, name),
		slog.Duration("duration", duration),
	}
	if correlationID := observability.ExtractCorrelationID(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	if err == nil {
		logger.DebugContext(ctx, kind+" completed", attrs...)
		return
	}

	code := core.CodeOf(err)
	attrs = append(attrs, slog.String("code", code), slog.Any("error", err))
	if isServerError(code) {
		if fe, ok := core.AsFrameworkError(err); ok && fe.StackTrace != "" {
			attrs = append(attrs, slog.String("stack", fe.StackTrace))
		}
		logger.ErrorContext(ctx, kind+" failed", attrs...)
		return
	}
	logger.InfoContext(ctx, kind+" rejected", attrs...)
}

func isServerError(code string) bool {
	switch code {
	case core.ErrInternal, core.ErrTransactionFailed, core.ErrInitializationFailed:
		return true
	}
	return false
}

// RecoveryCommandMiddleware восстанавливает панику в обработчиках команд
func RecoveryCommandMiddleware(logger *slog.Logger) CommandMiddleware {
	return func(ctx context.Context, cmd transport.Command, next func(ctx context.Context, cmd transport.Command) error) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "panic recovered", slog.String("command", cmd.CommandName()), slog.Any("panic", r))
				err = core.NewError(core.ErrInternal, fmt.Sprintf("panic recovered: %v", r))
			}
		}()
		return next(ctx, cmd)
	}
}

// RecoveryQueryMiddleware восстанавливает панику в обработчиках запросов
func RecoveryQueryMiddleware(logger *slog.Logger) QueryMiddleware {
	return func(ctx context.Context, q transport.Query, next func(ctx context.Context, q transport.Query) (interface{}, error)) (result interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorContext(ctx, "panic recovered", slog.String("query", q.QueryName()), slog.Any("panic", r))
				result = nil
				err = core.NewError(core.ErrInternal, fmt.Sprintf("panic recovered: %v", r))
			}
		}()
		return next(ctx, q)
	}
}

// TimeoutCommandMiddleware добавляет timeout к выполнению команды
func TimeoutCommandMiddleware(timeout time.Duration) CommandMiddleware {
	return func(ctx context.Context, cmd transport.Command, next func(ctx context.Context, cmd transport.Command) error) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return next(ctx, cmd)
	}
}

// TimeoutQueryMiddleware добавляет timeout к выполнению запроса
func TimeoutQueryMiddleware(timeout time.Duration) QueryMiddleware {
	return func(ctx context.Context, q transport.Query, next func(ctx context.Context, q transport.Query) (interface{}, error)) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return next(ctx, q)
	}
}

// TracingCommandMiddleware создает span для каждой команды
func TracingCommandMiddleware() CommandMiddleware {
	return func(ctx context.Context, cmd transport.Command, next func(ctx context.Context, cmd transport.Command) error) error {
		return observability.TraceCommand(ctx, cmd.CommandName(), func(ctx context.Context) error {
			return next(ctx, cmd)
		})
	}
}

// TracingQueryMiddleware создает span для каждого запроса
func TracingQueryMiddleware() QueryMiddleware {
	return func(ctx context.Context, q transport.Query, next func(ctx context.Context, q transport.Query) (interface{}, error)) (interface{}, error) {
		return observability.TraceQuery(ctx, q.QueryName(), func(ctx context.Context) (interface{}, error) {
			return next(ctx, q)
		})
	}
}

// MetricsCommandMiddleware записывает количество, длительность и коды ошибок команд
func MetricsCommandMiddleware(m *metrics.Metrics) CommandMiddleware {
	return func(ctx context.Context, cmd transport.Command, next func(ctx context.Context, cmd transport.Command) error) error {
		m.IncrementActiveCommands(ctx)
		defer m.DecrementActiveCommands(ctx)

		start := time.Now()
		err := next(ctx, cmd)
		m.RecordCommand(ctx, cmd.CommandName(), time.Since(start), core.CodeOf(err))
		return err
	}
}

// MetricsQueryMiddleware записывает количество, длительность и коды ошибок запросов
func MetricsQueryMiddleware(m *metrics.Metrics) QueryMiddleware {
	return func(ctx context.Context, q transport.Query, next func(ctx context.Context, q transport.Query) (interface{}, error)) (interface{}, error) {
		start := time.Now()
		result, err := next(ctx, q)
		m.RecordQuery(ctx, q.QueryName(), time.Since(start), core.CodeOf(err))
		return result, err
	}
}

// Pipeline набор middleware в порядке выполнения
type Pipeline struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Timeout time.Duration
	Tracing bool
}

// CommandMiddlewares возвращает цепочку: recovery, logging, tracing, metrics, timeout
func (p Pipeline) CommandMiddlewares() []transport.CommandInterceptor {
	chain := []transport.CommandInterceptor{
		RecoveryCommandMiddleware(p.Logger),
		LoggingCommandMiddleware(p.Logger),
	}
	if p.Tracing {
		chain = append(chain, TracingCommandMiddleware())
	}
	if p.Metrics != nil {
		chain = append(chain, MetricsCommandMiddleware(p.Metrics))
	}
	if p.Timeout > 0 {
		chain = append(chain, TimeoutCommandMiddleware(p.Timeout))
	}
	return chain
}

// QueryMiddlewares возвращает цепочку: recovery, logging, tracing, metrics, timeout
func (p Pipeline) QueryMiddlewares() []transport.QueryInterceptor {
	chain := []transport.QueryInterceptor{
		RecoveryQueryMiddleware(p.Logger),
		LoggingQueryMiddleware(p.Logger),
	}
	if p.Tracing {
		chain = append(chain, TracingQueryMiddleware())
	}
	if p.Metrics != nil {
		chain = append(chain, MetricsQueryMiddleware(p.Metrics))
	}
	if p.Timeout > 0 {
		chain = append(chain, TimeoutQueryMiddleware(p.Timeout))
	}
	return chain
}
