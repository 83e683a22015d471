package domain

import (
	"github.com/akriventsev/ordering/framework/events"
)

// Типы доменных событий
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
	EventProductUpdated     = "product.updated"
	EventProductDeleted     = "product.deleted"
)

// OrderCreated заказ создан и зафиксирован
type OrderCreated struct {
	*events.BaseEvent
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Items   int    `json:"items"`
	Total   string `json:"total"`
}

// NewOrderCreated создает событие OrderCreated
func NewOrderCreated(o *Order) OrderCreated {
	return OrderCreated{
		BaseEvent: events.NewBaseEvent(EventOrderCreated, o.ID),
		OrderID:   o.ID,
		UserID:    o.UserID,
		Items:     len(o.Items),
		Total:     o.Total().String(),
	}
}

// OrderStatusChanged статус заказа изменен
type OrderStatusChanged struct {
	*events.BaseEvent
	OrderID string      `json:"orderId"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}

// NewOrderStatusChanged создает событие OrderStatusChanged
func NewOrderStatusChanged(orderID string, from, to OrderStatus) OrderStatusChanged {
	return OrderStatusChanged{
		BaseEvent: events.NewBaseEvent(EventOrderStatusChanged, orderID),
		OrderID:   orderID,
		From:      from,
		To:        to,
	}
}

// OrderDeleted заказ удален вместе с позициями
type OrderDeleted struct {
	*events.BaseEvent
	OrderID string `json:"orderId"`
}

// NewOrderDeleted создает событие OrderDeleted
func NewOrderDeleted(orderID string) OrderDeleted {
	return OrderDeleted{BaseEvent: events.NewBaseEvent(EventOrderDeleted, orderID), OrderID: orderID}
}

// ProductUpdated товар изменен (влияет на снимки товаров в представлениях заказов)
type ProductUpdated struct {
	*events.BaseEvent
	ProductID string `json:"productId"`
}

// NewProductUpdated создает событие ProductUpdated
func NewProductUpdated(productID string) ProductUpdated {
	return ProductUpdated{BaseEvent: events.NewBaseEvent(EventProductUpdated, productID), ProductID: productID}
}

// ProductDeleted товар удален
type ProductDeleted struct {
	*events.BaseEvent
	ProductID string `json:"productId"`
}

// NewProductDeleted создает событие ProductDeleted
func NewProductDeleted(productID string) ProductDeleted {
	return ProductDeleted{BaseEvent: events.NewBaseEvent(EventProductDeleted, productID), ProductID: productID}
}
