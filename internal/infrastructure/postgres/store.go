// Package postgres реализует хранилище сервиса на PostgreSQL (pgx).
// Списание остатков пессимистичное: строки товаров блокируются SELECT ... FOR UPDATE
// в порядке возрастания ID внутри одной READ COMMITTED транзакции.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akriventsev/ordering/internal/domain"
)

// Config настройки подключения
type Config struct {
	DSN         string
	MaxConns    int32
	LockTimeout time.Duration
}

// Store хранилище PostgreSQL
type Store struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	logger      *slog.Logger
}

var _ domain.Store = (*Store)(nil)

// NewStore открывает пул соединений и проверяет доступность базы
func NewStore(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, lockTimeout: cfg.LockTimeout, logger: logger}, nil
}

func (s *Store) Orders() domain.OrderRepository     { return orderRepository{s} }
func (s *Store) Products() domain.ProductRepository { return productRepository{s} }
func (s *Store) Users() domain.UserRepository       { return userRepository{s} }

// Ping проверяет соединение с базой
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close закрывает пул
func (s *Store) Close() {
	s.pool.Close()
}

// RunOrderUnit выполняет fn в READ COMMITTED транзакции с ограниченным ожиданием блокировок
func (s *Store) RunOrderUnit(ctx context.Context, fn func(ctx context.Context, unit domain.OrderUnit) error) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if s.lockTimeout > 0 {
			// SET не принимает параметры
			if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
				return mapError(err)
			}
		}
		return fn(ctx, &orderUnit{tx: tx})
	})
}

// inTx выполняет fn в транзакции. Ошибка fn откатывает транзакцию.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			s.logger.WarnContext(ctx, "transaction rollback failed", slog.Any("error", rbErr))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// orderUnit транзакция создания заказа
type orderUnit struct {
	tx pgx.Tx
}

func (u *orderUnit) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := u.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

// GetStock блокирует строку товара до конца транзакции
func (u *orderUnit) GetStock(ctx context.Context, productID string) (int, error) {
	var stock int
	err := u.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&stock)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.NewNotFound("product", productID)
		}
		return 0, mapError(err)
	}
	return stock, nil
}

func (u *orderUnit) TryDecrement(ctx context.Context, productID string, quantity int) error {
	tag, err := u.tx.Exec(ctx, `
		UPDATE products
		   SET stock = stock - $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND stock >= $2`, productID, quantity)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	available, err := u.GetStock(ctx, productID)
	if err != nil {
		return err
	}
	return domain.NewInsufficientStock([]domain.Shortage{{ProductID: productID, Requested: quantity, Available: available}})
}

func (u *orderUnit) InsertOrder(ctx context.Context, order *domain.Order) error {
	_, err := u.tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		order.ID, order.UserID, string(order.Status), order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return mapError(err)
	}

	batch := &pgx.Batch{}
	for _, item := range order.Items {
		batch.Queue(`
			INSERT INTO order_items (id, order_id, product_id, unit_price, quantity, position)
			VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
			item.ID, order.ID, item.ProductID, item.UnitPrice.String(), item.Quantity, item.Position)
	}
	br := u.tx.SendBatch(ctx, batch)
	for range order.Items {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return mapError(err)
		}
	}
	return mapError(br.Close())
}
