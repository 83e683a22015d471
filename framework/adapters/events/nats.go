// Package events предоставляет адаптеры для публикации доменных событий.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/framework/events"
)

// MsgPublisher минимальный интерфейс соединения NATS
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSEventConfig конфигурация для NATS Event Publisher
type NATSEventConfig struct {
	Conn          MsgPublisher
	SubjectPrefix string
	MaxAttempts   int
	RetryDelay    time.Duration
}

// DefaultNATSEventConfig возвращает конфигурацию NATS Event Publisher по умолчанию
func DefaultNATSEventConfig() NATSEventConfig {
	return NATSEventConfig{
		SubjectPrefix: "ordering",
		MaxAttempts:   3,
		RetryDelay:    100 * time.Millisecond,
	}
}

// NATSEventAdapter пересылает доменные события в NATS.
// Subject формируется как {prefix}.{event_type}, Nats-Msg-Id равен ID события.
type NATSEventAdapter struct {
	config  NATSEventConfig
	running bool
}

// Envelope формат сообщения в NATS
type Envelope struct {
	EventID     string                 `json:"event_id"`
	EventType   string                 `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Payload     json.RawMessage        `json:"payload"`
}

// NewNATSEventAdapter создает новый NATS Event Publisher
func NewNATSEventAdapter(config NATSEventConfig) (*NATSEventAdapter, error) {
	if config.Conn == nil {
		return nil, core.NewError(core.ErrInvalidConfig, "NATS connection is required")
	}
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = DefaultNATSEventConfig().SubjectPrefix
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	return &NATSEventAdapter{config: config}, nil
}

// Connect устанавливает соединение с NATS с переподключением
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, core.Wrap(err, core.ErrInitializationFailed, "failed to connect to NATS")
	}
	return conn, nil
}

// Start запускает адаптер (реализация core.Lifecycle)
func (n *NATSEventAdapter) Start(ctx context.Context) error {
	n.running = true
	return nil
}

// Stop останавливает адаптер (реализация core.Lifecycle)
func (n *NATSEventAdapter) Stop(ctx context.Context) error {
	n.running = false
	return nil
}

// IsRunning проверяет, запущен ли адаптер (реализация core.Lifecycle)
func (n *NATSEventAdapter) IsRunning() bool {
	return n.running
}

// Name возвращает имя компонента (реализация core.Component)
func (n *NATSEventAdapter) Name() string {
	return "nats-event-adapter"
}

// Type возвращает тип компонента (реализация core.Component)
func (n *NATSEventAdapter) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// Handle реализует events.EventHandler
func (n *NATSEventAdapter) Handle(ctx context.Context, event events.Event) error {
	return n.Publish(ctx, event)
}

// Publish публикует событие
func (n *NATSEventAdapter) Publish(ctx context.Context, event events.Event) error {
	data, err := Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	msg := nats.NewMsg(n.Subject(event))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.EventID())
	if correlationID := event.Metadata().CorrelationID(); correlationID != "" {
		msg.Header.Set("X-Correlation-ID", correlationID)
	}

	return n.publishWithRetry(ctx, msg)
}

// Subject формирует subject для события
func (n *NATSEventAdapter) Subject(event events.Event) string {
	return n.config.SubjectPrefix + "." + event.EventType()
}

// Marshal сериализует событие в Envelope
func Marshal(event events.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{
		EventID:     event.EventID(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Metadata:    event.Metadata(),
		Payload:     payload,
	})
}

// publishWithRetry публикует событие с retry логикой
func (n *NATSEventAdapter) publishWithRetry(ctx context.Context, msg *nats.Msg) error {
	delay := n.config.RetryDelay
	var lastErr error

	for attempt := 0; attempt < n.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if lastErr = n.config.Conn.PublishMsg(msg); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to publish event after %d attempts: %w", n.config.MaxAttempts, lastErr)
}
