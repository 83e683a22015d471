package domain

import "context"

// StockLedger учет доступного остатка товаров внутри одной транзакции.
// GetStock фиксирует снимок строки: до конца транзакции конкурентный заказ
// не может изменить остаток незаметно (блокировка строки или проверка версии при commit).
type StockLedger interface {
	GetStock(ctx context.Context, productID string) (int, error)
	TryDecrement(ctx context.Context, productID string, quantity int) error
}

// OrderUnit транзакционное представление хранилища для создания заказа
type OrderUnit interface {
	StockLedger
	UserExists(ctx context.Context, userID string) (bool, error)
	InsertOrder(ctx context.Context, order *Order) error
}

// OrderUnitRunner выполняет fn в одной транзакции.
// Ошибка fn откатывает транзакцию и возвращается без изменений;
// конфликты конкурентного доступа оборачивают ErrConcurrentUpdate.
type OrderUnitRunner interface {
	RunOrderUnit(ctx context.Context, fn func(ctx context.Context, unit OrderUnit) error) error
}

// OrderRepository хранилище заказов
type OrderRepository interface {
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]*Order, error)
	// Update атомарно читает заказ, применяет mutate и сохраняет результат, если mutate вернул true
	Update(ctx context.Context, id string, mutate func(o *Order) (bool, error)) (*Order, error)
	Delete(ctx context.Context, id string) error
}

// ProductRepository хранилище товаров
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*Product, error)
	// Update атомарно читает товар, применяет mutate и увеличивает Version
	Update(ctx context.Context, id string, mutate func(p *Product) error) (*Product, error)
	// Delete возвращает CONFLICT, пока на товар ссылаются позиции заказов
	Delete(ctx context.Context, id string) error
}

// UserRepository хранилище пользователей и их сохраненных товаров
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, id string, mutate func(u *User) error) (*User, error)
	// Delete возвращает CONFLICT, пока у пользователя есть заказы
	Delete(ctx context.Context, id string) error

	SaveProduct(ctx context.Context, saved SavedProduct) error
	ListSavedProducts(ctx context.Context, userID string) ([]SavedProduct, error)
	RemoveSavedProduct(ctx context.Context, userID, productID string) error
}

// Store хранилище приложения
type Store interface {
	OrderUnitRunner
	Orders() OrderRepository
	Products() ProductRepository
	Users() UserRepository
	Ping(ctx context.Context) error
	Close()
}
