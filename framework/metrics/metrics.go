// Package metrics предоставляет систему метрик на основе OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "ordering"

// Metrics сборщик метрик приложения
type Metrics struct {
	commandsTotal     metric.Int64Counter
	queriesTotal      metric.Int64Counter
	eventsTotal       metric.Int64Counter
	commandDuration   metric.Float64Histogram
	queryDuration     metric.Float64Histogram
	errorsTotal       metric.Int64Counter
	activeCommands    metric.Int64UpDownCounter
	ordersCreated     metric.Int64Counter
	orderItems        metric.Int64Counter
	stockShortages    metric.Int64Counter
	txAttempts        metric.Int64Counter
	txConflicts       metric.Int64Counter
	cacheLookupsTotal metric.Int64Counter
}

// NewMetrics создает новый сборщик метрик на глобальном MeterProvider
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter создает сборщик метрик на указанном meter
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.commandsTotal, err = meter.Int64Counter("commands_total",
		metric.WithDescription("Total number of commands processed")); err != nil {
		return nil, err
	}
	if m.queriesTotal, err = meter.Int64Counter("queries_total",
		metric.WithDescription("Total number of queries processed")); err != nil {
		return nil, err
	}
	if m.eventsTotal, err = meter.Int64Counter("events_total",
		metric.WithDescription("Total number of domain events published")); err != nil {
		return nil, err
	}
	if m.commandDuration, err = meter.Float64Histogram("command_duration_seconds",
		metric.WithDescription("Command processing duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.queryDuration, err = meter.Float64Histogram("query_duration_seconds",
		metric.WithDescription("Query processing duration in seconds"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.errorsTotal, err = meter.Int64Counter("errors_total",
		metric.WithDescription("Total number of errors by code")); err != nil {
		return nil, err
	}
	if m.activeCommands, err = meter.Int64UpDownCounter("active_commands",
		metric.WithDescription("Number of active commands being processed")); err != nil {
		return nil, err
	}
	if m.ordersCreated, err = meter.Int64Counter("orders_created_total",
		metric.WithDescription("Orders committed")); err != nil {
		return nil, err
	}
	if m.orderItems, err = meter.Int64Counter("order_items_total",
		metric.WithDescription("Line items committed")); err != nil {
		return nil, err
	}
	if m.stockShortages, err = meter.Int64Counter("stock_shortages_total",
		metric.WithDescription("Orders rejected because of insufficient stock")); err != nil {
		return nil, err
	}
	if m.txAttempts, err = meter.Int64Counter("order_tx_attempts_total",
		metric.WithDescription("Order transaction attempts including retries")); err != nil {
		return nil, err
	}
	if m.txConflicts, err = meter.Int64Counter("order_tx_conflicts_total",
		metric.WithDescription("Order transactions aborted by a concurrent modification")); err != nil {
		return nil, err
	}
	if m.cacheLookupsTotal, err = meter.Int64Counter("query_cache_lookups_total",
		metric.WithDescription("Query cache lookups by outcome")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCommand записывает метрику команды
func (m *Metrics) RecordCommand(ctx context.Context, commandName string, duration time.Duration, code string) {
	success := code == ""
	attrs := metric.WithAttributes(
		attribute.String("command", commandName),
		attribute.Bool("success", success),
	)

	m.commandsTotal.Add(ctx, 1, attrs)
	m.commandDuration.Record(ctx, duration.Seconds(), attrs)

	if !success {
		m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", "command"),
			attribute.String("command", commandName),
			attribute.String("code", code),
		))
	}
}

// RecordQuery записывает метрику запроса
func (m *Metrics) RecordQuery(ctx context.Context, queryName string, duration time.Duration, code string) {
	success := code == ""
	attrs := metric.WithAttributes(
		attribute.String("query", queryName),
		attribute.Bool("success", success),
	)

	m.queriesTotal.Add(ctx, 1, attrs)
	m.queryDuration.Record(ctx, duration.Seconds(), attrs)

	if !success {
		m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", "query"),
			attribute.String("query", queryName),
			attribute.String("code", code),
		))
	}
}

// RecordEvent записывает метрику события
func (m *Metrics) RecordEvent(ctx context.Context, eventType string) {
	m.eventsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("event", eventType)))
}

// IncrementActiveCommands увеличивает счетчик активных команд
func (m *Metrics) IncrementActiveCommands(ctx context.Context) {
	m.activeCommands.Add(ctx, 1)
}

// DecrementActiveCommands уменьшает счетчик активных команд
func (m *Metrics) DecrementActiveCommands(ctx context.Context) {
	m.activeCommands.Add(ctx, -1)
}

// RecordOrderCreated записывает созданный заказ и число его позиций
func (m *Metrics) RecordOrderCreated(ctx context.Context, items int) {
	m.ordersCreated.Add(ctx, 1)
	m.orderItems.Add(ctx, int64(items))
}

// RecordStockShortage записывает отказ по остаткам
func (m *Metrics) RecordStockShortage(ctx context.Context, products int) {
	m.stockShortages.Add(ctx, 1, metric.WithAttributes(attribute.Int("products", products)))
}

// RecordTxAttempt записывает попытку транзакции заказа
func (m *Metrics) RecordTxAttempt(ctx context.Context, attempt int) {
	m.txAttempts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("retry", attempt > 1)))
}

// RecordTxConflict записывает конфликт конкурентного изменения
func (m *Metrics) RecordTxConflict(ctx context.Context) {
	m.txConflicts.Add(ctx, 1)
}

// RecordCacheLookup записывает обращение к кэшу запросов
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	m.cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", hit)))
}
