package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// суммы в JSON отдаются числами, как в запросах
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderStatus статус заказа
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusComplete OrderStatus = "COMPLETE"
)

// ParseOrderStatus проверяет, что значение входит в закрытый набор статусов
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusComplete:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Order заказ. Владеет своими позициями, удаление каскадное.
type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Items     []OrderItem `json:"orderItems"`
}

// OrderItem позиция заказа. UnitPrice фиксируется при создании заказа.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"orderId"`
	ProductID string          `json:"productId"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Position  int             `json:"-"`
}

// LineTotal стоимость позиции
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total сумма заказа, вычисляется при чтении и не хранится
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ProductIDs идентификаторы товаров заказа в порядке позиций
func (o *Order) ProductIDs() []string {
	ids := make([]string, len(o.Items))
	for i, item := range o.Items {
		ids[i] = item.ProductID
	}
	return ids
}

// TransitionTo переводит заказ в статус next.
// Повторный перевод в текущий статус ничего не меняет и возвращает false.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) (bool, error) {
	if o.Status == next {
		return false, nil
	}
	if o.Status == OrderStatusPending && next == OrderStatusComplete {
		o.Status = next
		o.UpdatedAt = now
		return true, nil
	}
	return false, NewConflict(fmt.Sprintf("order %s cannot move from %s to %s", o.ID, o.Status, next)).
		WithDetail("from", string(o.Status)).
		WithDetail("to", string(next))
}

// Clone возвращает копию заказа с независимым срезом позиций
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	return &c
}
