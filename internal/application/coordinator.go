package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/framework/metrics"
	"github.com/akriventsev/ordering/framework/observability"
	"github.com/akriventsev/ordering/internal/domain"
)

// RetryPolicy ограниченный повтор транзакции при конфликте
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy возвращает политику по умолчанию: 3 попытки с экспоненциальной паузой
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
	}
}

// Coordinator выполняет проверку остатков, списание и вставку заказа одной транзакцией
type Coordinator struct {
	runner  domain.OrderUnitRunner
	retry   RetryPolicy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewCoordinator создает Coordinator. metrics может быть nil.
func NewCoordinator(runner domain.OrderUnitRunner, retry RetryPolicy, logger *slog.Logger, m *metrics.Metrics) *Coordinator {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{runner: runner, retry: retry, logger: logger, metrics: m}
}

// CreateOrder фиксирует заказ или не пишет ничего.
// Конфликты повторяются до retry.MaxAttempts раз, после чего возвращается TRANSACTION_FAILED.
// Ошибки предметной области (NOT_FOUND, INSUFFICIENT_STOCK) не повторяются.
func (c *Coordinator) CreateOrder(ctx context.Context, a AssembledOrder) error {
	ctx, span := observability.StartSpan(ctx, "coordinator.create_order",
		attribute.String("order.id", a.Order.ID),
		attribute.Int("order.items", len(a.Order.Items)),
	)
	defer span.End()

	delay := c.retry.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, delay); err != nil {
				span.SetStatus(codes.Error, "cancelled during retry")
				return domain.NewTransactionFailed(err)
			}
			delay *= 2
			if delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		}

		if c.metrics != nil {
			c.metrics.RecordTxAttempt(ctx, attempt)
		}

		err := c.runner.RunOrderUnit(ctx, func(ctx context.Context, unit domain.OrderUnit) error {
			return c.apply(ctx, unit, a)
		})
		if err == nil {
			span.SetAttributes(attribute.Int("tx.attempts", attempt))
			if c.metrics != nil {
				c.metrics.RecordOrderCreated(ctx, len(a.Order.Items))
			}
			return nil
		}

		if errors.Is(err, domain.ErrConcurrentUpdate) {
			lastErr = err
			if c.metrics != nil {
				c.metrics.RecordTxConflict(ctx)
			}
			c.logger.DebugContext(ctx, "order transaction conflict",
				slog.String("order_id", a.Order.ID),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			continue
		}

		if fe, ok := core.AsFrameworkError(err); ok && fe.Code != core.ErrInternal {
			if fe.Code == domain.ErrInsufficientStock && c.metrics != nil {
				c.metrics.RecordStockShortage(ctx, len(domain.ShortagesOf(err)))
			}
			span.SetAttributes(attribute.String("order.rejected", fe.Code))
			return err
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		c.logger.ErrorContext(ctx, "order transaction failed",
			slog.String("order_id", a.Order.ID),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		return domain.NewTransactionFailed(err)
	}

	span.SetStatus(codes.Error, "retries exhausted")
	c.logger.WarnContext(ctx, "order transaction retries exhausted",
		slog.String("order_id", a.Order.ID),
		slog.Int("attempts", c.retry.MaxAttempts),
	)
	return domain.NewTransactionFailed(lastErr).WithDetail("attempts", c.retry.MaxAttempts)
}

// apply выполняет шаги создания заказа внутри транзакции
func (c *Coordinator) apply(ctx context.Context, unit domain.OrderUnit, a AssembledOrder) error {
	exists, err := unit.UserExists(ctx, a.Order.UserID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.NewNotFound("user", a.Order.UserID).WithField("userId")
	}

	// снимок остатков в порядке ID товаров
	var shortages []domain.Shortage
	for _, d := range a.Decrements {
		stock, err := unit.GetStock(ctx, d.ProductID)
		if err != nil {
			return err
		}
		if stock < d.Quantity {
			shortages = append(shortages, domain.Shortage{
				ProductID: d.ProductID,
				Requested: d.Quantity,
				Available: stock,
			})
		}
	}
	if len(shortages) > 0 {
		return domain.NewInsufficientStock(shortages)
	}

	for _, d := range a.Decrements {
		if err := unit.TryDecrement(ctx, d.ProductID, d.Quantity); err != nil {
			return err
		}
	}

	return unit.InsertOrder(ctx, a.Order)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
