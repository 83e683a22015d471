// Package memory реализует хранилище сервиса в памяти процесса.
// Списание остатков оптимистичное: commit сверяет версии прочитанных товаров.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/akriventsev/ordering/framework/adapters/repository"
	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/internal/domain"
)

type userRecord struct{ domain.User }

func (r userRecord) ID() string { return r.User.ID }

type productRecord struct{ domain.Product }

func (r productRecord) ID() string { return r.Product.ID }

type orderRecord struct{ *domain.Order }

func (r orderRecord) ID() string { return r.Order.ID }

type savedRecord struct{ domain.SavedProduct }

func (r savedRecord) ID() string { return r.UserID + "/" + r.ProductID }

// Store хранилище в памяти.
// mu делает commit транзакции заказа атомарным для всех читателей.
type Store struct {
	mu       sync.RWMutex
	users    *repository.InMemoryRepository[userRecord]
	products *repository.InMemoryRepository[productRecord]
	orders   *repository.InMemoryRepository[orderRecord]
	saved    *repository.InMemoryRepository[savedRecord]

	// beforeCommit вызывается перед проверкой версий, используется в тестах
	beforeCommit func()
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	s := &Store{
		users:    repository.NewInMemoryRepository[userRecord](repository.DefaultInMemoryConfig()),
		products: repository.NewInMemoryRepository[productRecord](repository.DefaultInMemoryConfig()),
		orders:   repository.NewInMemoryRepository[orderRecord](repository.DefaultInMemoryConfig()),
		saved:    repository.NewInMemoryRepository[savedRecord](repository.DefaultInMemoryConfig()),
	}
	s.users.AddUniqueIndex("email", func(r userRecord) string { return r.Email })
	s.products.AddIndex("category", func(r productRecord) string { return string(r.Category) })
	s.orders.AddIndex("user", func(r orderRecord) string { return r.UserID })
	s.saved.AddIndex("user", func(r savedRecord) string { return r.UserID })
	s.saved.AddIndex("product", func(r savedRecord) string { return r.ProductID })
	return s
}

var _ domain.Store = (*Store)(nil)

func (s *Store) Orders() domain.OrderRepository     { return orderRepository{s} }
func (s *Store) Products() domain.ProductRepository { return productRepository{s} }
func (s *Store) Users() domain.UserRepository       { return userRepository{s} }

// Ping всегда успешен
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close ничего не освобождает
func (s *Store) Close() {}

// RunOrderUnit выполняет fn над снимком хранилища и фиксирует изменения,
// если версии прочитанных товаров не изменились. Иначе возвращает ErrConcurrentUpdate.
func (s *Store) RunOrderUnit(ctx context.Context, fn func(ctx context.Context, unit domain.OrderUnit) error) error {
	unit := &orderUnit{
		store:    s,
		versions: make(map[string]int64),
		stock:    make(map[string]int),
	}
	if err := fn(ctx, unit); err != nil {
		return err
	}
	return s.commit(ctx, unit)
}

func (s *Store) commit(ctx context.Context, unit *orderUnit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.beforeCommit != nil {
		s.beforeCommit()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[string]productRecord, len(unit.versions))
	for id, version := range unit.versions {
		rec, err := s.products.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("product %s removed: %w", id, domain.ErrConcurrentUpdate)
		}
		if rec.Version != version {
			return fmt.Errorf("product %s version %d, read %d: %w", id, rec.Version, version, domain.ErrConcurrentUpdate)
		}
		current[id] = rec
	}
	for userID := range unit.users {
		if _, err := s.users.FindByID(ctx, userID); err != nil {
			return fmt.Errorf("user %s removed: %w", userID, domain.ErrConcurrentUpdate)
		}
	}

	for _, order := range unit.inserted {
		if _, err := s.orders.FindByID(ctx, order.ID); err == nil {
			return domain.NewAlreadyExists("id", fmt.Sprintf("order %s already exists", order.ID))
		}
	}

	for _, id := range unit.written {
		rec := current[id]
		rec.Stock = unit.stock[id]
		rec.Version++
		if err := s.products.Save(ctx, rec); err != nil {
			return err
		}
	}
	for _, order := range unit.inserted {
		if err := s.orders.Save(ctx, orderRecord{order.Clone()}); err != nil {
			return err
		}
	}
	return nil
}

// orderUnit накапливает прочитанные версии и изменения до commit
type orderUnit struct {
	store    *Store
	versions map[string]int64
	stock    map[string]int
	written  []string
	users    map[string]struct{}
	inserted []*domain.Order
}

func (u *orderUnit) UserExists(ctx context.Context, userID string) (bool, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()

	if _, err := u.store.users.FindByID(ctx, userID); err != nil {
		if core.HasCode(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if u.users == nil {
		u.users = make(map[string]struct{})
	}
	u.users[userID] = struct{}{}
	return true, nil
}

func (u *orderUnit) GetStock(ctx context.Context, productID string) (int, error) {
	if stock, ok := u.stock[productID]; ok {
		return stock, nil
	}

	u.store.mu.RLock()
	rec, err := u.store.products.FindByID(ctx, productID)
	u.store.mu.RUnlock()
	if err != nil {
		return 0, notFound(err, "product", productID)
	}

	u.versions[productID] = rec.Version
	u.stock[productID] = rec.Stock
	return rec.Stock, nil
}

func (u *orderUnit) TryDecrement(ctx context.Context, productID string, quantity int) error {
	stock, err := u.GetStock(ctx, productID)
	if err != nil {
		return err
	}
	if stock < quantity {
		return domain.NewInsufficientStock([]domain.Shortage{{ProductID: productID, Requested: quantity, Available: stock}})
	}

	if !contains(u.written, productID) {
		u.written = append(u.written, productID)
	}
	u.stock[productID] = stock - quantity
	return nil
}

func (u *orderUnit) InsertOrder(ctx context.Context, order *domain.Order) error {
	u.inserted = append(u.inserted, order.Clone())
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// notFound заменяет ошибку репозитория на NOT_FOUND с именем ресурса
func notFound(err error, resource, id string) error {
	if core.HasCode(err, core.ErrNotFound) {
		return domain.NewNotFound(resource, id)
	}
	return err
}
