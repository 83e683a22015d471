// Package events предоставляет реализацию EventBus.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// AllEvents подписка на события любого типа
const AllEvents = "*"

// EventMiddleware middleware для событий
type EventMiddleware func(ctx context.Context, event Event, next func(ctx context.Context, event Event) error) error

// InMemoryEventBus синхронная шина событий.
// Обработчики вызываются в порядке подписки, ошибка одного не мешает остальным.
type InMemoryEventBus struct {
	handlers   map[string][]EventHandler
	middleware []EventMiddleware
	mu         sync.RWMutex
	wg         sync.WaitGroup
	stopped    bool
}

// NewInMemoryEventBus создает новую шину событий
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]EventHandler),
	}
}

// WithMiddleware добавляет middleware к шине
func (b *InMemoryEventBus) WithMiddleware(middleware ...EventMiddleware) *InMemoryEventBus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middleware = append(b.middleware, middleware...)
	return b
}

// Subscribe подписывается на тип события
func (b *InMemoryEventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish публикует событие всем подписчикам
func (b *InMemoryEventBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	if b.stopped {
		b.mu.RUnlock()
		return fmt.Errorf("event bus is stopped")
	}
	handlers := make([]EventHandler, 0, len(b.handlers[event.EventType()])+len(b.handlers[AllEvents]))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.handlers[AllEvents]...)
	middleware := b.middleware
	b.wg.Add(1)
	b.mu.RUnlock()
	defer b.wg.Done()

	next := func(ctx context.Context, event Event) error {
		var errs []error
		for _, h := range handlers {
			if err := h.Handle(ctx, event); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	for i := len(middleware) - 1; i >= 0; i-- {
		mw := middleware[i]
		prevNext := next
		next = func(ctx context.Context, event Event) error {
			return mw(ctx, event, prevNext)
		}
	}

	if err := next(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventType(), err)
	}
	return nil
}

// Shutdown останавливает шину и ждет завершения активных публикаций
func (b *InMemoryEventBus) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
