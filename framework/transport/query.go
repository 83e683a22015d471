// Package transport предоставляет интерфейсы и реализации для работы с запросами CQRS.
package transport

import "context"

// Query представляет запрос CQRS
type Query interface {
	QueryName() string
}

// CacheableQuery запрос, результат которого допускается кэшировать.
// NewResult возвращает указатель, в который декодируется закэшированное значение.
type CacheableQuery interface {
	Query
	CacheKey() string
	NewResult() interface{}
}

// CacheRefreshQuery кэшируемый запрос, который может потребовать чтения мимо кэша.
// Свежий результат при этом всё равно записывается в кэш.
type CacheRefreshQuery interface {
	CacheableQuery
	RefreshCache() bool
}

// QueryHandler обработчик запросов
type QueryHandler interface {
	Handle(ctx context.Context, q Query) (interface{}, error)
	QueryName() string
}

// QueryInterceptor интерфейс для перехвата запросов
type QueryInterceptor interface {
	// Intercept вызывается перед выполнением запроса
	Intercept(ctx context.Context, q Query, next func(ctx context.Context, q Query) (interface{}, error)) (interface{}, error)
}

// QueryInterceptorFunc адаптер функции в QueryInterceptor
type QueryInterceptorFunc func(ctx context.Context, q Query, next func(ctx context.Context, q Query) (interface{}, error)) (interface{}, error)

// Intercept реализует QueryInterceptor
func (f QueryInterceptorFunc) Intercept(ctx context.Context, q Query, next func(ctx context.Context, q Query) (interface{}, error)) (interface{}, error) {
	return f(ctx, q, next)
}

// QueryCache интерфейс для кэширования результатов запросов
type QueryCache interface {
	// Get возвращает закэшированный результат
	Get(ctx context.Context, query CacheableQuery) (interface{}, bool)
	// Set сохраняет результат в кэш
	Set(ctx context.Context, query CacheableQuery, result interface{}) error
	// Invalidate инвалидирует кэш
	Invalidate(ctx context.Context, query CacheableQuery) error
}

// QueryBus шина запросов
type QueryBus interface {
	Ask(ctx context.Context, q Query) (interface{}, error)
	Register(handler QueryHandler) error
}
