package memory

import (
	"context"
	"sort"

	"github.com/akriventsev/ordering/internal/domain"
)

type orderRepository struct{ s *Store }

func (r orderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, err := r.s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return rec.Clone(), nil
}

// List возвращает заказы в порядке создания
func (r orderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	r.s.mu.RLock()
	recs, err := r.s.orders.FindAll(ctx)
	r.s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Order, len(recs))
	for i, rec := range recs {
		out[i] = rec.Clone()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r orderRepository) Update(ctx context.Context, id string, mutate func(o *domain.Order) (bool, error)) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, err := r.s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}

	order := rec.Clone()
	changed, err := mutate(order)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := r.s.orders.Save(ctx, orderRecord{order.Clone()}); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (r orderRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return notFound(r.s.orders.Delete(ctx, id), "order", id)
}
