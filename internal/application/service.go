// Package application реализует команды и запросы сервиса заказов поверх шин CQRS.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/akriventsev/ordering/framework/cqrs"
	"github.com/akriventsev/ordering/framework/events"
	"github.com/akriventsev/ordering/framework/metrics"
	"github.com/akriventsev/ordering/framework/observability"
	"github.com/akriventsev/ordering/framework/transport"
	"github.com/akriventsev/ordering/internal/domain"
)

// Config зависимости Service
type Config struct {
	Store   domain.Store
	Events  events.EventPublisher
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Retry   RetryPolicy
	NewID   func() string
	Now     func() time.Time
}

// Service обработчики команд и запросов заказов, товаров и пользователей
type Service struct {
	store       domain.Store
	events      events.EventPublisher
	logger      *slog.Logger
	validator   *Validator
	assembler   *Assembler
	coordinator *Coordinator
	now         func() time.Time
}

// NewService создает Service
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Service{
		store:       cfg.Store,
		events:      cfg.Events,
		logger:      logger,
		validator:   NewValidator(),
		assembler:   NewAssembler(cfg.NewID, now),
		coordinator: NewCoordinator(cfg.Store, cfg.Retry, logger, cfg.Metrics),
		now:         now,
	}
}

// Register регистрирует все обработчики в шинах
func (s *Service) Register(commands transport.CommandBus, queries transport.QueryBus) error {
	if err := cqrs.RegisterCommandHandlers(commands, s.CommandHandlers()...); err != nil {
		return err
	}
	return cqrs.RegisterQueryHandlers(queries, s.QueryHandlers()...)
}

// CommandHandlers обработчики команд сервиса
func (s *Service) CommandHandlers() []transport.CommandHandler {
	return []transport.CommandHandler{
		cqrs.NewTypedCommandHandler(CreateOrderCommandName, s.CreateOrder),
		cqrs.NewTypedCommandHandler(UpdateOrderStatusCommandName, s.UpdateOrderStatus),
		cqrs.NewTypedCommandHandler(DeleteOrderCommandName, s.DeleteOrder),

		cqrs.NewTypedCommandHandler(CreateUserCommandName, s.CreateUser),
		cqrs.NewTypedCommandHandler(UpdateUserCommandName, s.UpdateUser),
		cqrs.NewTypedCommandHandler(DeleteUserCommandName, s.DeleteUser),
		cqrs.NewTypedCommandHandler(SaveProductCommandName, s.SaveProduct),
		cqrs.NewTypedCommandHandler(RemoveSavedProductCommandName, s.RemoveSavedProduct),

		cqrs.NewTypedCommandHandler(CreateProductCommandName, s.CreateProduct),
		cqrs.NewTypedCommandHandler(UpdateProductCommandName, s.UpdateProduct),
		cqrs.NewTypedCommandHandler(DeleteProductCommandName, s.DeleteProduct),
	}
}

// QueryHandlers обработчики запросов сервиса
func (s *Service) QueryHandlers() []transport.QueryHandler {
	return []transport.QueryHandler{
		cqrs.NewTypedQueryHandler(GetOrderQueryName, s.GetOrder),
		cqrs.NewTypedQueryHandler(ListOrdersQueryName, s.ListOrders),

		cqrs.NewTypedQueryHandler(GetUserQueryName, s.GetUser),
		cqrs.NewTypedQueryHandler(ListUsersQueryName, s.ListUsers),
		cqrs.NewTypedQueryHandler(ListSavedProductsQueryName, s.ListSavedProducts),

		cqrs.NewTypedQueryHandler(GetProductQueryName, s.GetProduct),
		cqrs.NewTypedQueryHandler(ListProductsQueryName, s.ListProducts),
	}
}

// publish отправляет событие после фиксации. Ошибка только логируется.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if id := observability.ExtractCorrelationID(ctx); id != "" {
		event.Metadata()["correlation_id"] = id
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "event publication failed",
			slog.String("event_type", event.EventType()),
			slog.String("aggregate_id", event.AggregateID()),
			slog.Any("error", err),
		)
	}
}

// checkID проверяет формат идентификатора из пути. Некорректный id не может существовать.
func checkID(resource, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.NewNotFound(resource, id)
	}
	return nil
}
