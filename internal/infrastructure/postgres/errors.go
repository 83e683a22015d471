package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/akriventsev/ordering/internal/domain"
)

// SQLSTATE коды, которые обрабатываются отдельно
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNumericOutOfRange    = "22003"
)

// fieldByColumn имена полей запроса для числовых колонок
var fieldByColumn = map[string]string{
	"unit_price": "unitPrice",
	"price":      "price",
	"stock":      "stock",
	"quantity":   "quantity",
}

// mapError переводит ошибки PostgreSQL в ошибки предметной области.
// Конфликты блокировок оборачивают ErrConcurrentUpdate, остальное возвращается как есть.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%s (%s): %w", pgErr.Message, pgErr.Code, domain.ErrConcurrentUpdate)
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case "users_email_key":
			return domain.NewAlreadyExists("email", "email is already registered")
		case "saved_products_pkey":
			return domain.NewAlreadyExists("productId", "product is already saved")
		}
		return domain.NewAlreadyExists("id", "resource already exists")
	case codeForeignKeyViolation:
		switch pgErr.ConstraintName {
		case "orders_user_id_fkey":
			// пользователь удален между проверкой и вставкой заказа
			return fmt.Errorf("%s: %w", pgErr.Message, domain.ErrConcurrentUpdate)
		case "order_items_product_id_fkey":
			return domain.NewConflict("product is referenced by orders")
		}
		return domain.NewConflict("resource is referenced")
	case codeNumericOutOfRange:
		field := fieldByColumn[pgErr.ColumnName]
		return domain.NewValidationError(field, "numeric value is out of range")
	case codeCheckViolation:
		if pgErr.ConstraintName == "products_stock_check" {
			return domain.NewValidationError("stock", "stock must be at least 0")
		}
	}
	return err
}
