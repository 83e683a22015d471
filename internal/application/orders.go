package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akriventsev/ordering/internal/domain"
)

const (
	CreateOrderCommandName       = "orders.create"
	UpdateOrderStatusCommandName = "orders.update_status"
	DeleteOrderCommandName       = "orders.delete"
	GetOrderQueryName            = "orders.get"
	ListOrdersQueryName          = "orders.list"
)

// OrderCacheKeyPrefix префикс ключей кэша представлений заказов
const OrderCacheKeyPrefix = "order:"

// CreateOrderCommand создание заказа с заранее выданным ID
type CreateOrderCommand struct {
	OrderID string
	Request CreateOrderRequest
}

func (CreateOrderCommand) CommandName() string { return CreateOrderCommandName }

// UpdateOrderStatusCommand перевод заказа в новый статус
type UpdateOrderStatusCommand struct {
	OrderID string
	Request UpdateOrderStatusRequest
}

func (UpdateOrderStatusCommand) CommandName() string { return UpdateOrderStatusCommandName }

// DeleteOrderCommand удаление заказа вместе с позициями
type DeleteOrderCommand struct {
	OrderID string
}

func (DeleteOrderCommand) CommandName() string { return DeleteOrderCommandName }

// GetOrderQuery заказ с позициями, снимками товаров и суммой. Кэшируется.
// Refresh читает заказ из хранилища и перезаписывает кэш.
type GetOrderQuery struct {
	OrderID string
	Refresh bool
}

func (GetOrderQuery) QueryName() string { return GetOrderQueryName }

// CacheKey ключ кэша представления заказа
func (q GetOrderQuery) CacheKey() string { return OrderCacheKeyPrefix + q.OrderID }

// NewResult возвращает значение для декодирования из кэша
func (GetOrderQuery) NewResult() interface{} { return &OrderView{} }

// RefreshCache сообщает шине, что кэш нужно пропустить
func (q GetOrderQuery) RefreshCache() bool { return q.Refresh }

// ListOrdersQuery все заказы в порядке создания, без сумм
type ListOrdersQuery struct{}

func (ListOrdersQuery) QueryName() string { return ListOrdersQueryName }

// ProductSnapshot текущие name и category товара позиции
type ProductSnapshot struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category domain.Category `json:"category"`
}

// OrderItemView позиция в представлении заказа
type OrderItemView struct {
	ID        string           `json:"id"`
	ProductID string           `json:"productId"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	Quantity  int              `json:"quantity"`
	Product   *ProductSnapshot `json:"product"`
}

// OrderView представление заказа для GET /orders/:id
type OrderView struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId"`
	Status    domain.OrderStatus `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Items     []OrderItemView    `json:"orderItems"`
	Total     decimal.Decimal    `json:"total"`
}

// NewOrderView строит представление заказа. Отсутствующие в products товары получают nil снимок.
func NewOrderView(o *domain.Order, products map[string]*domain.Product) *OrderView {
	view := &OrderView{
		ID:        o.ID,
		UserID:    o.UserID,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		Items:     make([]OrderItemView, len(o.Items)),
		Total:     o.Total(),
	}
	for i, item := range o.Items {
		iv := OrderItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
		if p, ok := products[item.ProductID]; ok && p != nil {
			iv.Product = &ProductSnapshot{ID: p.ID, Name: p.Name, Category: p.Category}
		}
		view.Items[i] = iv
	}
	return view
}

// CreateOrder проверяет запрос, собирает заказ и фиксирует его вместе со списанием остатков
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) error {
	if cmd.OrderID == "" {
		return domain.NewValidationError("id", "id is required")
	}

	validated, err := s.validator.ValidateCreateOrder(cmd.Request)
	if err != nil {
		return err
	}

	assembled, err := s.assembler.Assemble(cmd.OrderID, validated)
	if err != nil {
		return err
	}

	if err := s.coordinator.CreateOrder(ctx, assembled); err != nil {
		return err
	}

	s.publish(ctx, domain.NewOrderCreated(assembled.Order))
	return nil
}

// UpdateOrderStatus переводит заказ в новый статус. Повтор текущего статуса ничего не меняет.
func (s *Service) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatusCommand) error {
	next, err := s.validator.ValidateStatus(cmd.Request)
	if err != nil {
		return err
	}
	if err := checkID("order", cmd.OrderID); err != nil {
		return err
	}

	var from domain.OrderStatus
	changed := false
	_, err = s.store.Orders().Update(ctx, cmd.OrderID, func(o *domain.Order) (bool, error) {
		from = o.Status
		ok, err := o.TransitionTo(next, s.now().UTC())
		changed = ok
		return ok, err
	})
	if err != nil {
		return err
	}

	if changed {
		s.publish(ctx, domain.NewOrderStatusChanged(cmd.OrderID, from, next))
	}
	return nil
}

// DeleteOrder удаляет заказ. Остатки товаров не возвращаются.
func (s *Service) DeleteOrder(ctx context.Context, cmd DeleteOrderCommand) error {
	if err := checkID("order", cmd.OrderID); err != nil {
		return err
	}
	if err := s.store.Orders().Delete(ctx, cmd.OrderID); err != nil {
		return err
	}
	s.publish(ctx, domain.NewOrderDeleted(cmd.OrderID))
	return nil
}

// GetOrder возвращает заказ с суммой и снимками товаров
func (s *Service) GetOrder(ctx context.Context, q GetOrderQuery) (*OrderView, error) {
	if err := checkID("order", q.OrderID); err != nil {
		return nil, err
	}

	order, err := s.store.Orders().Get(ctx, q.OrderID)
	if err != nil {
		return nil, err
	}

	products, err := s.store.Products().GetMany(ctx, order.ProductIDs())
	if err != nil {
		return nil, err
	}

	return NewOrderView(order, products), nil
}

// ListOrders возвращает все заказы с позициями
func (s *Service) ListOrders(ctx context.Context, _ ListOrdersQuery) ([]*domain.Order, error) {
	return s.store.Orders().List(ctx)
}
