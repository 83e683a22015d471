// Package metrics предоставляет функции для настройки системы метрик.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// MetricsConfig конфигурация метрик
type MetricsConfig struct {
	ServiceName   string
	ResourceAttrs map[string]string
}

// Provider MeterProvider с HTTP обработчиком экспозиции Prometheus
type Provider struct {
	provider *metric.MeterProvider
	handler  http.Handler
}

// SetupMetrics настраивает экспорт метрик в Prometheus и регистрирует глобальный MeterProvider
func SetupMetrics(config MetricsConfig) (*Provider, error) {
	registry := promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	attrs := buildResourceAttributes(config.ResourceAttrs)
	if config.ServiceName != "" {
		attrs = append(attrs, attribute.String("service.name", config.ServiceName))
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)

	otel.SetMeterProvider(provider)

	return &Provider{
		provider: provider,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}, nil
}

// Handler возвращает HTTP обработчик для /metrics
func (p *Provider) Handler() http.Handler {
	return p.handler
}

// Shutdown корректно завершает работу метрик
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}

// buildResourceAttributes строит resource attributes
func buildResourceAttributes(attrs map[string]string) []attribute.KeyValue {
	result := make([]attribute.KeyValue, 0, len(attrs)+1)
	for k, v := range attrs {
		result = append(result, attribute.String(k, v))
	}
	return result
}
