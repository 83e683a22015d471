package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/akriventsev/ordering/internal/domain"
)

type orderRepository struct{ s *Store }

const selectOrder = `SELECT id::text, user_id::text, status, created_at, updated_at FROM orders`

const selectItems = `SELECT id::text, order_id::text, product_id::text, unit_price::text, quantity, position FROM order_items`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	o.Items = []domain.OrderItem{}
	return &o, nil
}

func scanItems(rows pgx.Rows) ([]domain.OrderItem, error) {
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item  domain.OrderItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &price, &item.Quantity, &item.Position); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, err
		}
		item.UnitPrice = d
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r orderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	return r.get(ctx, r.s.pool, id, "")
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r orderRepository) get(ctx context.Context, q querier, id, lock string) (*domain.Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, selectOrder+` WHERE id = $1`+lock, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("order", id)
		}
		return nil, mapError(err)
	}

	rows, err := q.Query(ctx, selectItems+` WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, mapError(err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, mapError(err)
	}
	if items != nil {
		o.Items = items
	}
	return o, nil
}

// List возвращает заказы в порядке создания вместе с позициями
func (r orderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.s.pool.Query(ctx, selectOrder+` ORDER BY created_at, id`)
	if err != nil {
		return nil, mapError(err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, mapError(err)
	}

	rows, err = r.s.pool.Query(ctx, selectItems+` ORDER BY order_id, position`)
	if err != nil {
		return nil, mapError(err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, mapError(err)
	}

	byID := make(map[string]*domain.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}
	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return orders, nil
}

func (r orderRepository) Update(ctx context.Context, id string, mutate func(o *domain.Order) (bool, error)) (*domain.Order, error) {
	var out *domain.Order
	err := r.s.inTx(ctx, func(tx pgx.Tx) error {
		o, err := r.get(ctx, tx, id, " FOR UPDATE")
		if err != nil {
			return err
		}
		changed, err := mutate(o)
		if err != nil {
			return err
		}
		if changed {
			_, err := tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`,
				id, string(o.Status), o.UpdatedAt)
			if err != nil {
				return mapError(err)
			}
		}
		out = o
		return nil
	})
	return out, err
}

// Delete удаляет заказ, позиции удаляются каскадно
func (r orderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFound("order", id)
	}
	return nil
}
