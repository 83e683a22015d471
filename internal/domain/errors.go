package domain

import (
	"errors"
	"fmt"

	"github.com/akriventsev/ordering/framework/core"
)

// Коды ошибок предметной области
const (
	ErrDuplicateLineItem = "DUPLICATE_LINE_ITEM"
	ErrInsufficientStock = "INSUFFICIENT_STOCK"
)

// ErrConcurrentUpdate помечает конфликт конкурентного изменения.
// Хранилища оборачивают им version mismatch, serialization failure, deadlock и lock timeout.
var ErrConcurrentUpdate = errors.New("concurrent update detected")

// Shortage нехватка остатка по одному товару
type Shortage struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// NewValidationError ошибка валидации поля
func NewValidationError(field, message string) *core.FrameworkError {
	return core.NewError(core.ErrValidation, message).WithField(field)
}

// NewNotFound ошибка отсутствия сущности
func NewNotFound(resource, id string) *core.FrameworkError {
	return core.NewError(core.ErrNotFound, fmt.Sprintf("%s %s not found", resource, id)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// NewDuplicateLineItem ошибка повторного товара в заказе
func NewDuplicateLineItem(field, productID string) *core.FrameworkError {
	return core.NewError(ErrDuplicateLineItem, fmt.Sprintf("product %s appears more than once", productID)).
		WithField(field).
		WithDetail("productId", productID)
}

// NewInsufficientStock ошибка нехватки остатков, перечисляет все позиции
func NewInsufficientStock(shortages []Shortage) *core.FrameworkError {
	msg := "insufficient stock"
	if len(shortages) == 1 {
		msg = fmt.Sprintf("insufficient stock for product %s", shortages[0].ProductID)
	} else if len(shortages) > 1 {
		msg = fmt.Sprintf("insufficient stock for %d products", len(shortages))
	}
	return core.NewError(ErrInsufficientStock, msg).WithDetail("shortages", shortages)
}

// NewConflict ошибка недопустимого изменения состояния
func NewConflict(message string) *core.FrameworkError {
	return core.NewError(core.ErrConflict, message)
}

// NewAlreadyExists ошибка нарушения уникальности
func NewAlreadyExists(field, message string) *core.FrameworkError {
	return core.NewError(core.ErrAlreadyExists, message).WithField(field)
}

// NewTransactionFailed ошибка хранилища, безопасная для повтора клиентом
func NewTransactionFailed(cause error) *core.FrameworkError {
	return core.Wrap(cause, core.ErrTransactionFailed, "transaction failed")
}

// ShortagesOf извлекает список нехваток из ошибки INSUFFICIENT_STOCK
func ShortagesOf(err error) []Shortage {
	fe, ok := core.AsFrameworkError(err)
	if !ok || fe.Code != ErrInsufficientStock {
		return nil
	}
	shortages, _ := fe.Details["shortages"].([]Shortage)
	return shortages
}
