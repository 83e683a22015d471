package application

import (
	"context"
	"log/slog"

	"github.com/akriventsev/ordering/framework/events"
	"github.com/akriventsev/ordering/framework/metrics"
	"github.com/akriventsev/ordering/internal/domain"
)

// CacheInvalidator удаляет записи кэша запросов
type CacheInvalidator interface {
	InvalidateKeys(ctx context.Context, cacheKeys ...string) error
	InvalidatePrefix(ctx context.Context, cacheKeyPrefix string) error
}

// SubscribeCacheInvalidation сбрасывает закэшированные представления заказов по доменным событиям.
// Изменение товара сбрасывает все заказы, т.к. снимок товара входит в представление.
func SubscribeCacheInvalidation(sub events.EventSubscriber, cache CacheInvalidator, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	byOrder := events.EventHandlerFunc(func(ctx context.Context, event events.Event) error {
		err := cache.InvalidateKeys(ctx, OrderCacheKeyPrefix+event.AggregateID())
		if err != nil {
			logger.WarnContext(ctx, "order cache invalidation failed",
				slog.String("order_id", event.AggregateID()),
				slog.Any("error", err),
			)
		}
		return err
	})
	allOrders := events.EventHandlerFunc(func(ctx context.Context, event events.Event) error {
		err := cache.InvalidatePrefix(ctx, OrderCacheKeyPrefix)
		if err != nil {
			logger.WarnContext(ctx, "order cache flush failed",
				slog.String("event_type", event.EventType()),
				slog.Any("error", err),
			)
		}
		return err
	})

	sub.Subscribe(domain.EventOrderStatusChanged, byOrder)
	sub.Subscribe(domain.EventOrderDeleted, byOrder)
	sub.Subscribe(domain.EventProductUpdated, allOrders)
	sub.Subscribe(domain.EventProductDeleted, allOrders)
}

// SubscribeMetrics считает опубликованные доменные события
func SubscribeMetrics(sub events.EventSubscriber, m *metrics.Metrics) {
	if m == nil {
		return
	}
	sub.Subscribe(events.AllEvents, events.EventHandlerFunc(func(ctx context.Context, event events.Event) error {
		m.RecordEvent(ctx, event.EventType())
		return nil
	}))
}
