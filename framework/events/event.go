// Package events предоставляет базовые интерфейсы для работы с доменными событиями.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event представляет доменное событие
type Event interface {
	// EventID возвращает уникальный идентификатор события
	EventID() string
	// EventType возвращает тип события
	EventType() string
	// OccurredAt возвращает время возникновения события
	OccurredAt() time.Time
	// AggregateID возвращает идентификатор агрегата
	AggregateID() string
	// Metadata возвращает метаданные события
	Metadata() EventMetadata
}

// EventMetadata метаданные события
type EventMetadata map[string]interface{}

// CorrelationID возвращает correlation ID
func (m EventMetadata) CorrelationID() string {
	if id, ok := m["correlation_id"].(string); ok {
		return id
	}
	return ""
}

// BaseEvent базовая реализация события
type BaseEvent struct {
	eventID     string
	eventType   string
	occurredAt  time.Time
	aggregateID string
	metadata    EventMetadata
}

// NewBaseEvent создает новое базовое событие
func NewBaseEvent(eventType, aggregateID string) *BaseEvent {
	return &BaseEvent{
		eventID:     uuid.NewString(),
		eventType:   eventType,
		occurredAt:  time.Now().UTC(),
		aggregateID: aggregateID,
		metadata:    make(EventMetadata),
	}
}

// WithMetadata добавляет метаданные к событию
func (e *BaseEvent) WithMetadata(key string, value interface{}) *BaseEvent {
	e.metadata[key] = value
	return e
}

// WithCorrelationID устанавливает correlation ID
func (e *BaseEvent) WithCorrelationID(id string) *BaseEvent {
	if id != "" {
		e.metadata["correlation_id"] = id
	}
	return e
}

func (e *BaseEvent) EventID() string {
	return e.eventID
}

func (e *BaseEvent) EventType() string {
	return e.eventType
}

func (e *BaseEvent) OccurredAt() time.Time {
	return e.occurredAt
}

func (e *BaseEvent) AggregateID() string {
	return e.aggregateID
}

func (e *BaseEvent) Metadata() EventMetadata {
	return e.metadata
}

// EventHandler обработчик доменных событий
type EventHandler interface {
	// Handle обрабатывает событие
	Handle(ctx context.Context, event Event) error
}

// EventHandlerFunc адаптер функции в EventHandler
type EventHandlerFunc func(ctx context.Context, event Event) error

// Handle реализует EventHandler
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// EventPublisher публикатор событий
type EventPublisher interface {
	// Publish публикует событие
	Publish(ctx context.Context, event Event) error
}

// EventSubscriber подписчик на события
type EventSubscriber interface {
	// Subscribe подписывается на тип события, AllEvents подписывает на все типы
	Subscribe(eventType string, handler EventHandler)
}

// EventBus объединяет Publisher и Subscriber
type EventBus interface {
	EventPublisher
	EventSubscriber
}
