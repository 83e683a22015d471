package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// MockCommand для тестирования
type MockCommand struct {
	name string
}

func (c MockCommand) CommandName() string {
	return c.name
}

// MockCommandHandler для тестирования
type MockCommandHandler struct {
	name    string
	handled bool
	err     error
}

func (h *MockCommandHandler) Handle(ctx context.Context, cmd Command) error {
	h.handled = true
	return h.err
}

func (h *MockCommandHandler) CommandName() string {
	return h.name
}

// MockQuery для тестирования
type MockQuery struct {
	name string
}

func (q MockQuery) QueryName() string {
	return q.name
}

// MockCacheableQuery для тестирования кэша
type MockCacheableQuery struct {
	key string
}

func (q MockCacheableQuery) QueryName() string { return "cacheable" }
func (q MockCacheableQuery) CacheKey() string  { return q.key }
func (q MockCacheableQuery) NewResult() interface{} {
	var s string
	return &s
}

// MockRefreshQuery кэшируемый запрос с принудительным обновлением
type MockRefreshQuery struct {
	MockCacheableQuery
	refresh bool
}

func (q MockRefreshQuery) RefreshCache() bool { return q.refresh }

// MockQueryHandler для тестирования
type MockQueryHandler struct {
	name   string
	calls  int
	result interface{}
	err    error
}

func (h *MockQueryHandler) Handle(ctx context.Context, q Query) (interface{}, error) {
	h.calls++
	return h.result, h.err
}

func (h *MockQueryHandler) QueryName() string {
	return h.name
}

// mapCache простая реализация QueryCache
type mapCache struct {
	mu   sync.Mutex
	data map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]interface{})}
}

func (c *mapCache) Get(ctx context.Context, q CacheableQuery) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[q.CacheKey()]
	return v, ok
}

func (c *mapCache) Set(ctx context.Context, q CacheableQuery, result interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[q.CacheKey()] = result
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context, q CacheableQuery) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, q.CacheKey())
	return nil
}

func TestInMemoryCommandBus_Send(t *testing.T) {
	bus := NewInMemoryCommandBus()
	handler := &MockCommandHandler{name: "test-command"}

	if err := bus.Register(handler); err != nil {
		t.Fatalf("Failed to register handler: %v", err)
	}

	if err := bus.Send(context.Background(), MockCommand{name: "test-command"}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !handler.handled {
		t.Error("Expected handler to be called")
	}
}

func TestInMemoryCommandBus_Send_NoHandler(t *testing.T) {
	bus := NewInMemoryCommandBus()

	if err := bus.Send(context.Background(), MockCommand{name: "unknown"}); err == nil {
		t.Error("Expected error for unregistered command")
	}
}

func TestInMemoryCommandBus_Register_Duplicate(t *testing.T) {
	bus := NewInMemoryCommandBus()

	if err := bus.Register(&MockCommandHandler{name: "dup"}); err != nil {
		t.Fatalf("Failed to register handler: %v", err)
	}
	if err := bus.Register(&MockCommandHandler{name: "dup"}); err == nil {
		t.Error("Expected error for duplicate handler")
	}
}

func TestInMemoryCommandBus_PropagatesHandlerError(t *testing.T) {
	bus := NewInMemoryCommandBus()
	expected := errors.New("handler failed")
	_ = bus.Register(&MockCommandHandler{name: "failing", err: expected})

	if err := bus.Send(context.Background(), MockCommand{name: "failing"}); !errors.Is(err, expected) {
		t.Errorf("Expected %v, got %v", expected, err)
	}
}

func TestInMemoryCommandBus_MiddlewareOrder(t *testing.T) {
	var order []string
	record := func(name string) CommandInterceptor {
		return CommandInterceptorFunc(func(ctx context.Context, cmd Command, next func(ctx context.Context, cmd Command) error) error {
			order = append(order, name)
			return next(ctx, cmd)
		})
	}

	bus := NewInMemoryCommandBus().WithMiddleware(record("first"), record("second"))
	_ = bus.Register(&MockCommandHandler{name: "cmd"})

	if err := bus.Send(context.Background(), MockCommand{name: "cmd"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("Expected [first second], got %v", order)
	}
}

func TestInMemoryQueryBus_Ask(t *testing.T) {
	bus := NewInMemoryQueryBus()
	handler := &MockQueryHandler{name: "test-query", result: "value"}
	_ = bus.Register(handler)

	result, err := bus.Ask(context.Background(), MockQuery{name: "test-query"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result != "value" {
		t.Errorf("Expected value, got %v", result)
	}
}

func TestInMemoryQueryBus_CachesOnlyCacheableQueries(t *testing.T) {
	cache := newMapCache()
	bus := NewInMemoryQueryBus().WithCache(cache)

	plain := &MockQueryHandler{name: "plain", result: "p"}
	cacheable := &MockQueryHandler{name: "cacheable", result: "c"}
	_ = bus.Register(plain)
	_ = bus.Register(cacheable)

	for i := 0; i < 3; i++ {
		if _, err := bus.Ask(context.Background(), MockQuery{name: "plain"}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if _, err := bus.Ask(context.Background(), MockCacheableQuery{key: "k"}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	if plain.calls != 3 {
		t.Errorf("Expected plain handler to run 3 times, got %d", plain.calls)
	}
	if cacheable.calls != 1 {
		t.Errorf("Expected cacheable handler to run once, got %d", cacheable.calls)
	}

	_ = cache.Invalidate(context.Background(), MockCacheableQuery{key: "k"})
	_, _ = bus.Ask(context.Background(), MockCacheableQuery{key: "k"})
	if cacheable.calls != 2 {
		t.Errorf("Expected handler to run after invalidation, got %d calls", cacheable.calls)
	}
}

func TestInMemoryQueryBus_RefreshBypassesCache(t *testing.T) {
	cache := newMapCache()
	bus := NewInMemoryQueryBus().WithCache(cache)
	handler := &MockQueryHandler{name: "cacheable", result: "fresh"}
	_ = bus.Register(handler)

	stale := MockCacheableQuery{key: "k"}
	_ = cache.Set(context.Background(), stale, "stale")

	result, err := bus.Ask(context.Background(), MockRefreshQuery{MockCacheableQuery: stale, refresh: true})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result != "fresh" {
		t.Errorf("Expected fresh result, got %v", result)
	}
	if handler.calls != 1 {
		t.Errorf("Expected handler to run once, got %d", handler.calls)
	}

	cached, _ := cache.Get(context.Background(), stale)
	if cached != "fresh" {
		t.Errorf("Expected cache to be overwritten, got %v", cached)
	}

	result, _ = bus.Ask(context.Background(), MockRefreshQuery{MockCacheableQuery: stale})
	if result != "fresh" || handler.calls != 1 {
		t.Errorf("Expected cached result without handler call, got %v after %d calls", result, handler.calls)
	}
}

func TestInMemoryQueryBus_ErrorsAreNotCached(t *testing.T) {
	cache := newMapCache()
	bus := NewInMemoryQueryBus().WithCache(cache)
	handler := &MockQueryHandler{name: "cacheable", err: errors.New("boom")}
	_ = bus.Register(handler)

	_, _ = bus.Ask(context.Background(), MockCacheableQuery{key: "k"})
	_, _ = bus.Ask(context.Background(), MockCacheableQuery{key: "k"})

	if handler.calls != 2 {
		t.Errorf("Expected 2 handler calls, got %d", handler.calls)
	}
}
