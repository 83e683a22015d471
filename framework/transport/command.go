// Package transport предоставляет интерфейсы и реализации для работы с командами CQRS.
package transport

import "context"

// Command представляет команду CQRS
type Command interface {
	CommandName() string
}

// CommandHandler обработчик команд
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
	CommandName() string
}

// CommandInterceptor интерфейс для перехвата команд
type CommandInterceptor interface {
	// Intercept вызывается перед выполнением команды
	Intercept(ctx context.Context, cmd Command, next func(ctx context.Context, cmd Command) error) error
}

// CommandInterceptorFunc адаптер функции в CommandInterceptor
type CommandInterceptorFunc func(ctx context.Context, cmd Command, next func(ctx context.Context, cmd Command) error) error

// Intercept реализует CommandInterceptor
func (f CommandInterceptorFunc) Intercept(ctx context.Context, cmd Command, next func(ctx context.Context, cmd Command) error) error {
	return f(ctx, cmd, next)
}

// CommandBus шина команд
type CommandBus interface {
	Send(ctx context.Context, cmd Command) error
	Register(handler CommandHandler) error
}
