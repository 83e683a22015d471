package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		conflict bool
		code     string
		field    string
	}{
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, conflict: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, conflict: true},
		{name: "lock timeout", err: fmt.Errorf("select: %w", &pgconn.PgError{Code: "55P03"}), conflict: true},
		{name: "email taken", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, code: core.ErrAlreadyExists, field: "email"},
		{name: "saved twice", err: &pgconn.PgError{Code: "23505", ConstraintName: "saved_products_pkey"}, code: core.ErrAlreadyExists, field: "productId"},
		{name: "user removed", err: &pgconn.PgError{Code: "23503", ConstraintName: "orders_user_id_fkey"}, conflict: true},
		{name: "product referenced", err: &pgconn.PgError{Code: "23503", ConstraintName: "order_items_product_id_fkey"}, code: core.ErrConflict},
		{name: "price overflow", err: &pgconn.PgError{Code: "22003", ColumnName: "unit_price"}, code: core.ErrValidation, field: "unitPrice"},
		{name: "overflow without column", err: &pgconn.PgError{Code: "22003"}, code: core.ErrValidation},
		{name: "negative stock", err: &pgconn.PgError{Code: "23514", ConstraintName: "products_stock_check"}, code: core.ErrValidation, field: "stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err)
			if tt.conflict {
				assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
				return
			}
			fe, ok := core.AsFrameworkError(err)
			if assert.True(t, ok, "got %v", err) {
				assert.Equal(t, tt.code, fe.Code)
				assert.Equal(t, tt.field, fe.Field)
			}
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))

	plain := errors.New("connection refused")
	assert.Same(t, plain, mapError(plain))

	other := &pgconn.PgError{Code: "42P01"}
	assert.Equal(t, error(other), mapError(other))
	assert.NotErrorIs(t, mapError(other), domain.ErrConcurrentUpdate)
}
