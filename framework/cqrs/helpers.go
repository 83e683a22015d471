// Package cqrs предоставляет вспомогательные функции для работы с CQRS.
package cqrs

import (
	"context"
	"fmt"

	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/framework/transport"
)

// RegisterCommandHandlers регистрирует несколько обработчиков команд в шине
func RegisterCommandHandlers(bus transport.CommandBus, handlers ...transport.CommandHandler) error {
	for _, handler := range handlers {
		if err := bus.Register(handler); err != nil {
			return fmt.Errorf("failed to register handler %s: %w", handler.CommandName(), err)
		}
	}
	return nil
}

// RegisterQueryHandlers регистрирует несколько обработчиков запросов в шине
func RegisterQueryHandlers(bus transport.QueryBus, handlers ...transport.QueryHandler) error {
	for _, handler := range handlers {
		if err := bus.Register(handler); err != nil {
			return fmt.Errorf("failed to register handler %s: %w", handler.QueryName(), err)
		}
	}
	return nil
}

// TypedCommandHandler[T] generic обработчик команды с типизацией
type TypedCommandHandler[T transport.Command] struct {
	name    string
	handler func(ctx context.Context, cmd T) error
}

// NewTypedCommandHandler создает типизированный обработчик команды
func NewTypedCommandHandler[T transport.Command](name string, handler func(ctx context.Context, cmd T) error) *TypedCommandHandler[T] {
	return &TypedCommandHandler[T]{
		name:    name,
		handler: handler,
	}
}

func (h *TypedCommandHandler[T]) Handle(ctx context.Context, cmd transport.Command) error {
	typedCmd, ok := cmd.(T)
	if !ok {
		return core.NewError(core.ErrInternal, fmt.Sprintf("invalid command type %T for handler %s", cmd, h.name))
	}
	return h.handler(ctx, typedCmd)
}

func (h *TypedCommandHandler[T]) CommandName() string {
	return h.name
}

// TypedQueryHandler[T, R] generic обработчик запроса с типизацией
type TypedQueryHandler[T transport.Query, R any] struct {
	name    string
	handler func(ctx context.Context, q T) (R, error)
}

// NewTypedQueryHandler создает типизированный обработчик запроса
func NewTypedQueryHandler[T transport.Query, R any](name string, handler func(ctx context.Context, q T) (R, error)) *TypedQueryHandler[T, R] {
	return &TypedQueryHandler[T, R]{
		name:    name,
		handler: handler,
	}
}

func (h *TypedQueryHandler[T, R]) Handle(ctx context.Context, q transport.Query) (interface{}, error) {
	typedQuery, ok := q.(T)
	if !ok {
		return nil, core.NewError(core.ErrInternal, fmt.Sprintf("invalid query type %T for handler %s", q, h.name))
	}
	return h.handler(ctx, typedQuery)
}

func (h *TypedQueryHandler[T, R]) QueryName() string {
	return h.name
}

// Ask отправляет запрос и приводит результат к ожидаемому типу
func Ask[R any](ctx context.Context, bus transport.QueryBus, q transport.Query) (R, error) {
	var zero R

	result, err := bus.Ask(ctx, q)
	if err != nil {
		return zero, err
	}

	typed, ok := result.(R)
	if !ok {
		return zero, core.NewError(core.ErrInternal, fmt.Sprintf("unexpected result type %T for query %s", result, q.QueryName()))
	}
	return typed, nil
}
