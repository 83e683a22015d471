package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/akriventsev/ordering/internal/domain"
)

type userRepository struct{ s *Store }

const selectUser = `
	SELECT u.id::text, u.email, u.first_name, u.last_name, u.address,
	       COALESCE(p.receive_email, false), u.created_at, u.updated_at
	  FROM users u
	  LEFT JOIN user_preferences p ON p.user_id = u.id`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Address,
		&u.Preference.ReceiveEmail, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// Create вставляет пользователя и его настройки в одной транзакции
func (r userRepository) Create(ctx context.Context, u *domain.User) error {
	return r.s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, first_name, last_name, address, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Email, u.FirstName, u.LastName, u.Address, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return mapError(err)
		}
		_, err = tx.Exec(ctx, `INSERT INTO user_preferences (user_id, receive_email) VALUES ($1, $2)`,
			u.ID, u.Preference.ReceiveEmail)
		return mapError(err)
	})
}

func (r userRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.s.pool.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("user", id)
		}
		return nil, mapError(err)
	}
	return u, nil
}

func (r userRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.s.pool.Query(ctx, selectUser+` ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, mapError(err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.User, error) {
		return scanUser(row)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

func (r userRepository) Update(ctx context.Context, id string, mutate func(u *domain.User) error) (*domain.User, error) {
	var out *domain.User
	err := r.s.inTx(ctx, func(tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx, selectUser+` WHERE u.id = $1 FOR UPDATE OF u`, id))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.NewNotFound("user", id)
			}
			return mapError(err)
		}
		if err := mutate(u); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE users SET email = $2, first_name = $3, last_name = $4, address = $5, updated_at = $6
			 WHERE id = $1`,
			id, u.Email, u.FirstName, u.LastName, u.Address, u.UpdatedAt)
		if err != nil {
			return mapError(err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO user_preferences (user_id, receive_email) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET receive_email = EXCLUDED.receive_email`,
			id, u.Preference.ReceiveEmail)
		if err != nil {
			return mapError(err)
		}
		u.ID = id
		out = u
		return nil
	})
	return out, err
}

// Delete удаляет пользователя без заказов. Настройки и сохраненные товары удаляются каскадно.
func (r userRepository) Delete(ctx context.Context, id string) error {
	return r.s.inTx(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id::text FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.NewNotFound("user", id)
			}
			return mapError(err)
		}

		var orders int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, id).Scan(&orders); err != nil {
			return mapError(err)
		}
		if orders > 0 {
			return domain.NewConflict(fmt.Sprintf("user %s owns %d order(s)", id, orders)).
				WithDetail("orders", orders)
		}

		_, err = tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return mapError(err)
	})
}

func (r userRepository) SaveProduct(ctx context.Context, saved domain.SavedProduct) error {
	_, err := r.s.pool.Exec(ctx, `
		INSERT INTO saved_products (user_id, product_id, saved_at) VALUES ($1, $2, $3)`,
		saved.UserID, saved.ProductID, saved.SavedAt)
	return mapError(err)
}

// ListSavedProducts возвращает сохраненные товары в порядке сохранения
func (r userRepository) ListSavedProducts(ctx context.Context, userID string) ([]domain.SavedProduct, error) {
	rows, err := r.s.pool.Query(ctx, `
		SELECT user_id::text, product_id::text, saved_at FROM saved_products
		 WHERE user_id = $1 ORDER BY saved_at, product_id`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	saved, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SavedProduct, error) {
		var s domain.SavedProduct
		err := row.Scan(&s.UserID, &s.ProductID, &s.SavedAt)
		s.SavedAt = s.SavedAt.UTC()
		return s, err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

func (r userRepository) RemoveSavedProduct(ctx context.Context, userID, productID string) error {
	tag, err := r.s.pool.Exec(ctx, `DELETE FROM saved_products WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFound("saved product", productID)
	}
	return nil
}
