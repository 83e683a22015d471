package observability

import (
	"context"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// CorrelationIDHeader заголовок correlation ID
const CorrelationIDHeader = "X-Correlation-ID"

const tracerName = "ordering"

// TracingConfig конфигурация для distributed tracing
type TracingConfig struct {
	Enabled          bool
	ServiceName      string
	ServiceVersion   string
	Exporter         string // "stdout", "otlp", "zipkin"
	ExporterEndpoint string
	SamplingRate     float64 // 0.0 - 1.0
	Environment      string
}

// TracingManager менеджер для distributed tracing
type TracingManager struct {
	config   TracingConfig
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	running  bool
	mu       sync.RWMutex
}

// NewTracingManager создает новый TracingManager.
// При выключенном tracing возвращает менеджер с no-op tracer.
func NewTracingManager(config TracingConfig) (*TracingManager, error) {
	if !config.Enabled {
		return &TracingManager{config: config, tracer: noop.NewTracerProvider().Tracer(tracerName)}, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := createExporter(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	sampler := sdktrace.TraceIDRatioBased(config.SamplingRate)
	if config.SamplingRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if config.SamplingRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracingManager{
		config:   config,
		tracer:   tp.Tracer(config.ServiceName),
		provider: tp,
	}, nil
}

// createExporter создает exporter на основе конфигурации
func createExporter(config TracingConfig) (sdktrace.SpanExporter, error) {
	switch config.Exporter {
	case "zipkin":
		return zipkin.New(config.ExporterEndpoint)
	case "otlp":
		client := otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(config.ExporterEndpoint),
			otlptracehttp.WithInsecure(),
		)
		return otlptrace.New(context.Background(), client)
	case "stdout", "":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", config.Exporter)
	}
}

// Start запускает tracing
func (tm *TracingManager) Start(ctx context.Context) error {
	tm.mu.Lock()
	tm.running = true
	tm.mu.Unlock()
	return nil
}

// Stop сбрасывает буферы и останавливает tracing
func (tm *TracingManager) Stop(ctx context.Context) error {
	tm.mu.Lock()
	tm.running = false
	tm.mu.Unlock()

	if tm.provider != nil {
		return tm.provider.Shutdown(ctx)
	}
	return nil
}

// IsRunning проверяет статус
func (tm *TracingManager) IsRunning() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.running
}

// Tracer возвращает tracer для создания spans
func (tm *TracingManager) Tracer() trace.Tracer {
	return tm.tracer
}

// HTTPTracingMiddleware Gin middleware для инструментации HTTP запросов
func HTTPTracingMiddleware(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName)
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		)

		c.Request = c.Request.WithContext(ctx)
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(c.Writer.Header()))

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
	}
}

// ExtractCorrelationID извлекает correlation ID из context
func ExtractCorrelationID(ctx context.Context) string {
	if member := baggage.FromContext(ctx).Member(CorrelationIDHeader); member.Key() == CorrelationIDHeader {
		return member.Value()
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().TraceID().IsValid() {
		return span.SpanContext().TraceID().String()
	}

	return ""
}

// InjectCorrelationID добавляет correlation ID в context
func InjectCorrelationID(ctx context.Context, correlationID string) context.Context {
	member, err := baggage.NewMember(CorrelationIDHeader, correlationID)
	if err != nil {
		return ctx
	}
	b, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, b)
}

// CorrelationIDMiddleware Gin middleware для генерации и передачи correlation ID
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			if sc := trace.SpanFromContext(ctx).SpanContext(); sc.TraceID().IsValid() {
				correlationID = sc.TraceID().String()
			} else {
				correlationID = uuid.NewString()
			}
		}

		c.Request = c.Request.WithContext(InjectCorrelationID(ctx, correlationID))
		c.Writer.Header().Set(CorrelationIDHeader, correlationID)

		c.Next()
	}
}

// TraceCommand обертка для команд с автоматической инструментацией
func TraceCommand(ctx context.Context, commandName string, fn func(context.Context) error) error {
	ctx, span := otel.Tracer(tracerName+".command").Start(ctx, "command."+commandName)
	defer span.End()

	span.SetAttributes(attribute.String("command.name", commandName))

	err := fn(ctx)
	finishSpan(span, "command", err)
	return err
}

// TraceQuery обертка для запросов с автоматической инструментацией
func TraceQuery(ctx context.Context, queryName string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ctx, span := otel.Tracer(tracerName+".query").Start(ctx, "query."+queryName)
	defer span.End()

	span.SetAttributes(attribute.String("query.name", queryName))

	result, err := fn(ctx)
	finishSpan(span, "query", err)
	return result, err
}

// TraceEvent обертка для публикации событий
func TraceEvent(ctx context.Context, eventType string, fn func(context.Context) error) error {
	ctx, span := otel.Tracer(tracerName+".event").Start(ctx, "event."+eventType)
	defer span.End()

	span.SetAttributes(attribute.String("event.type", eventType))

	err := fn(ctx)
	finishSpan(span, "event", err)
	return err
}

// StartSpan открывает span для произвольной операции хранилища или координатора
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func finishSpan(span trace.Span, kind string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool(kind+".success", false))
		return
	}
	span.SetAttributes(attribute.Bool(kind+".success", true))
}
