package memory

import (
	"context"
	"fmt"

	"github.com/akriventsev/ordering/internal/domain"
)

type productRepository struct{ s *Store }

func (r productRepository) Create(ctx context.Context, p *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.s.products.FindByID(ctx, p.ID); err == nil {
		return domain.NewAlreadyExists("id", fmt.Sprintf("product %s already exists", p.ID))
	}
	rec := productRecord{*p}
	if rec.Version == 0 {
		rec.Version = 1
	}
	return r.s.products.Save(ctx, rec)
}

func (r productRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, err := r.s.products.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	p := rec.Product
	return &p, nil
}

// GetMany возвращает найденные товары, отсутствующие ID пропускаются
func (r productRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		rec, err := r.s.products.FindByID(ctx, id)
		if err != nil {
			continue
		}
		p := rec.Product
		out[id] = &p
	}
	return out, nil
}

func (r productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var (
		recs []productRecord
		err  error
	)
	if filter.Category != "" {
		recs, err = r.s.products.FindByIndex(ctx, "category", string(filter.Category))
	} else {
		recs, err = r.s.products.FindAll(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Product, len(recs))
	for i := range recs {
		p := recs[i].Product
		out[i] = &p
	}
	return out, nil
}

func (r productRepository) Update(ctx context.Context, id string, mutate func(p *domain.Product) error) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, err := r.s.products.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}

	p := rec.Product
	if err := mutate(&p); err != nil {
		return nil, err
	}
	if p.Stock < 0 {
		return nil, domain.NewValidationError("stock", "stock must be at least 0")
	}
	p.ID = id
	p.Version = rec.Version + 1
	if err := r.s.products.Save(ctx, productRecord{p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete удаляет товар вместе с записями сохраненных товаров
func (r productRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.s.products.FindByID(ctx, id); err != nil {
		return notFound(err, "product", id)
	}

	referenced, err := r.s.orders.Find(ctx, func(rec orderRecord) bool {
		for _, item := range rec.Items {
			if item.ProductID == id {
				return true
			}
		}
		return false
	})
	if err != nil {
		return err
	}
	if len(referenced) > 0 {
		return domain.NewConflict(fmt.Sprintf("product %s is referenced by %d order(s)", id, len(referenced))).
			WithDetail("orders", len(referenced))
	}

	saved, err := r.s.saved.FindByIndex(ctx, "product", id)
	if err != nil {
		return err
	}
	for _, rec := range saved {
		if err := r.s.saved.Delete(ctx, rec.ID()); err != nil {
			return err
		}
	}
	return r.s.products.Delete(ctx, id)
}
