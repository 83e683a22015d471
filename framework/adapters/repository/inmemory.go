package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/akriventsev/ordering/framework/core"
)

// InMemoryConfig конфигурация для InMemory репозитория
type InMemoryConfig struct {
	// MaxEntities максимальное количество сущностей (0 = без ограничений)
	MaxEntities int
}

// DefaultInMemoryConfig возвращает конфигурацию InMemory по умолчанию
func DefaultInMemoryConfig() InMemoryConfig {
	return InMemoryConfig{}
}

type index[T Entity] struct {
	keyFunc func(T) string
	unique  bool
	keys    map[string]map[string]struct{} // key -> entity IDs
}

// InMemoryRepository[T Entity] generic in-memory репозиторий с secondary индексами
type InMemoryRepository[T Entity] struct {
	config   InMemoryConfig
	entities map[string]T
	indexes  map[string]*index[T]
	mu       sync.RWMutex
}

// NewInMemoryRepository создает новый in-memory репозиторий
func NewInMemoryRepository[T Entity](config InMemoryConfig) *InMemoryRepository[T] {
	return &InMemoryRepository[T]{
		config:   config,
		entities: make(map[string]T),
		indexes:  make(map[string]*index[T]),
	}
}

// AddIndex добавляет secondary index
func (r *InMemoryRepository[T]) AddIndex(name string, keyFunc func(T) string) {
	r.addIndex(name, keyFunc, false)
}

// AddUniqueIndex добавляет уникальный index: Save вернет ALREADY_EXISTS при повторе ключа
func (r *InMemoryRepository[T]) AddUniqueIndex(name string, keyFunc func(T) string) {
	r.addIndex(name, keyFunc, true)
}

func (r *InMemoryRepository[T]) addIndex(name string, keyFunc func(T) string, unique bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := &index[T]{keyFunc: keyFunc, unique: unique, keys: make(map[string]map[string]struct{})}
	for id, entity := range r.entities {
		idx.add(keyFunc(entity), id)
	}
	r.indexes[name] = idx
}

func (idx *index[T]) add(key, id string) {
	if idx.keys[key] == nil {
		idx.keys[key] = make(map[string]struct{})
	}
	idx.keys[key][id] = struct{}{}
}

func (idx *index[T]) remove(key, id string) {
	if ids, ok := idx.keys[key]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(idx.keys, key)
		}
	}
}

// Save сохраняет entity (вставка или замена)
func (r *InMemoryRepository[T]) Save(ctx context.Context, entity T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := entity.ID()
	if id == "" {
		return core.NewError(core.ErrValidation, "entity ID cannot be empty")
	}

	old, exists := r.entities[id]
	if !exists && r.config.MaxEntities > 0 && len(r.entities) >= r.config.MaxEntities {
		return core.NewError(core.ErrConflict, fmt.Sprintf("repository limit reached: max %d entities", r.config.MaxEntities))
	}

	for name, idx := range r.indexes {
		if !idx.unique {
			continue
		}
		for other := range idx.keys[idx.keyFunc(entity)] {
			if other != id {
				return core.NewError(core.ErrAlreadyExists, fmt.Sprintf("duplicate value for unique index %s", name)).WithDetail("index", name)
			}
		}
	}

	for _, idx := range r.indexes {
		if exists {
			idx.remove(idx.keyFunc(old), id)
		}
		idx.add(idx.keyFunc(entity), id)
	}
	r.entities[id] = entity

	return nil
}

// FindByID находит entity по ID
func (r *InMemoryRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, exists := r.entities[id]
	if !exists {
		var zero T
		return zero, core.NewError(core.ErrNotFound, fmt.Sprintf("entity not found: %s", id))
	}
	return entity, nil
}

// FindAll возвращает все entities, упорядоченные по ID
func (r *InMemoryRepository[T]) FindAll(ctx context.Context) ([]T, error) {
	return r.Find(ctx, func(T) bool { return true })
}

// Find находит entities по предикату, упорядоченные по ID
func (r *InMemoryRepository[T]) Find(ctx context.Context, predicate func(T) bool) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]T, 0)
	for _, entity := range r.entities {
		if predicate(entity) {
			results = append(results, entity)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID() < results[j].ID() })
	return results, nil
}

// FindByIndex находит entities по index key
func (r *InMemoryRepository[T]) FindByIndex(ctx context.Context, indexName, key string) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.indexes[indexName]
	if !exists {
		return nil, core.NewError(core.ErrInvalidConfig, fmt.Sprintf("index not found: %s", indexName))
	}

	results := make([]T, 0, len(idx.keys[key]))
	for id := range idx.keys[key] {
		results = append(results, r.entities[id])
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID() < results[j].ID() })
	return results, nil
}

// Delete удаляет entity
func (r *InMemoryRepository[T]) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, exists := r.entities[id]
	if !exists {
		return core.NewError(core.ErrNotFound, fmt.Sprintf("entity not found: %s", id))
	}

	for _, idx := range r.indexes {
		idx.remove(idx.keyFunc(entity), id)
	}
	delete(r.entities, id)
	return nil
}

// Count возвращает количество entities
func (r *InMemoryRepository[T]) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities), nil
}
