package application

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/akriventsev/ordering/internal/domain"
)

// Decrement инструкция списания остатка
type Decrement struct {
	ProductID string
	Quantity  int
}

// AssembledOrder агрегат заказа и инструкции списания в порядке захвата блокировок
type AssembledOrder struct {
	Order      *domain.Order
	Decrements []Decrement
}

// Assembler строит агрегат заказа из проверенного запроса
type Assembler struct {
	newID func() string
	now   func() time.Time
}

// NewAssembler создает Assembler. nil аргументы заменяются на uuid.NewString и time.Now.
func NewAssembler(newID func() string, now func() time.Time) *Assembler {
	if newID == nil {
		newID = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	return &Assembler{newID: newID, now: now}
}

// Assemble строит заказ в статусе PENDING.
// Товар может встречаться в заказе только один раз, повтор дает DUPLICATE_LINE_ITEM.
// Decrements отсортированы по ID товара.
func (a *Assembler) Assemble(orderID string, v ValidatedOrder) (AssembledOrder, error) {
	seen := make(map[string]struct{}, len(v.Items))
	for i, item := range v.Items {
		if _, dup := seen[item.ProductID]; dup {
			return AssembledOrder{}, domain.NewDuplicateLineItem(fmt.Sprintf("orderItems[%d].productId", i), item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}

	now := a.now().UTC()
	order := &domain.Order{
		ID:        orderID,
		UserID:    v.UserID,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Items:     make([]domain.OrderItem, len(v.Items)),
	}

	decrements := make([]Decrement, len(v.Items))
	for i, item := range v.Items {
		order.Items[i] = domain.OrderItem{
			ID:        a.newID(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Position:  i,
		}
		decrements[i] = Decrement{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	sort.Slice(decrements, func(i, j int) bool { return decrements[i].ProductID < decrements[j].ProductID })

	return AssembledOrder{Order: order, Decrements: decrements}, nil
}
