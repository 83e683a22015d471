package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/akriventsev/ordering/internal/domain"
)

type productRepository struct{ s *Store }

const selectProduct = `SELECT id::text, name, description, category, price::text, stock, version, created_at, updated_at FROM products`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p        domain.Product
		category string
		price    string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &category, &price, &p.Stock, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	p.Price = d
	p.Category = domain.Category(category)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]*domain.Product, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Product, error) {
		return scanProduct(row)
	})
}

func (r productRepository) Create(ctx context.Context, p *domain.Product) error {
	version := p.Version
	if version == 0 {
		version = 1
	}
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO products (id, name, description, category, price, stock, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Description, string(p.Category), p.Price.String(), p.Stock, version, p.CreatedAt, p.UpdatedAt)
	return mapError(err)
}

func (r productRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.s.pool.QueryRow(ctx, selectProduct+` WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("product", id)
		}
		return nil, mapError(err)
	}
	return p, nil
}

// GetMany возвращает найденные товары, отсутствующие ID пропускаются
func (r productRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.s.pool.Query(ctx, selectProduct+` WHERE id = ANY($1::text[]::uuid[])`, ids)
	if err != nil {
		return nil, mapError(err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, mapError(err)
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if filter.Category != "" {
		rows, err = r.s.pool.Query(ctx, selectProduct+` WHERE category = $1 ORDER BY id`, string(filter.Category))
	} else {
		rows, err = r.s.pool.Query(ctx, selectProduct+` ORDER BY id`)
	}
	if err != nil {
		return nil, mapError(err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, mapError(err)
	}
	return products, nil
}

// Update блокирует строку товара, применяет mutate и увеличивает версию
func (r productRepository) Update(ctx context.Context, id string, mutate func(p *domain.Product) error) (*domain.Product, error) {
	var out *domain.Product
	err := r.s.inTx(ctx, func(tx pgx.Tx) error {
		p, err := scanProduct(tx.QueryRow(ctx, selectProduct+` WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.NewNotFound("product", id)
			}
			return mapError(err)
		}
		if err := mutate(p); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			UPDATE products
			   SET name = $2, description = $3, category = $4, price = $5::numeric, stock = $6,
			       version = version + 1, updated_at = $7
			 WHERE id = $1
			RETURNING version`,
			id, p.Name, p.Description, string(p.Category), p.Price.String(), p.Stock, p.UpdatedAt).Scan(&p.Version)
		if err != nil {
			return mapError(err)
		}
		p.ID = id
		out = p
		return nil
	})
	return out, err
}

// Delete удаляет товар, на который не ссылаются позиции заказов.
// Сохраненные товары пользователей удаляются каскадно.
func (r productRepository) Delete(ctx context.Context, id string) error {
	return r.s.inTx(ctx, func(tx pgx.Tx) error {
		var refs int
		err := tx.QueryRow(ctx, `
			SELECT count(DISTINCT order_id) FROM order_items WHERE product_id = $1`, id).Scan(&refs)
		if err != nil {
			return mapError(err)
		}
		if refs > 0 {
			return domain.NewConflict(fmt.Sprintf("product %s is referenced by %d order(s)", id, refs)).
				WithDetail("orders", refs)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return mapError(err)
		}
		if tag.RowsAffected() == 0 {
			return domain.NewNotFound("product", id)
		}
		return nil
	})
}
