package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/internal/domain"
)

type userRepository struct{ s *Store }

func (r userRepository) Create(ctx context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.s.users.FindByID(ctx, u.ID); err == nil {
		return domain.NewAlreadyExists("id", fmt.Sprintf("user %s already exists", u.ID))
	}
	return emailTaken(r.s.users.Save(ctx, userRecord{*u}), u.Email)
}

func (r userRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, err := r.s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	u := rec.User
	return &u, nil
}

func (r userRepository) List(ctx context.Context) ([]*domain.User, error) {
	r.s.mu.RLock()
	recs, err := r.s.users.FindAll(ctx)
	r.s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	out := make([]*domain.User, len(recs))
	for i := range recs {
		u := recs[i].User
		out[i] = &u
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r userRepository) Update(ctx context.Context, id string, mutate func(u *domain.User) error) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, err := r.s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}

	u := rec.User
	if err := mutate(&u); err != nil {
		return nil, err
	}
	u.ID = id
	if err := emailTaken(r.s.users.Save(ctx, userRecord{u}), u.Email); err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete удаляет пользователя без заказов вместе с сохраненными товарами
func (r userRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.s.users.FindByID(ctx, id); err != nil {
		return notFound(err, "user", id)
	}

	orders, err := r.s.orders.FindByIndex(ctx, "user", id)
	if err != nil {
		return err
	}
	if len(orders) > 0 {
		return domain.NewConflict(fmt.Sprintf("user %s owns %d order(s)", id, len(orders))).
			WithDetail("orders", len(orders))
	}

	saved, err := r.s.saved.FindByIndex(ctx, "user", id)
	if err != nil {
		return err
	}
	for _, rec := range saved {
		if err := r.s.saved.Delete(ctx, rec.ID()); err != nil {
			return err
		}
	}
	return r.s.users.Delete(ctx, id)
}

func (r userRepository) SaveProduct(ctx context.Context, saved domain.SavedProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.s.users.FindByID(ctx, saved.UserID); err != nil {
		return notFound(err, "user", saved.UserID)
	}
	if _, err := r.s.products.FindByID(ctx, saved.ProductID); err != nil {
		return notFound(err, "product", saved.ProductID)
	}

	rec := savedRecord{saved}
	if _, err := r.s.saved.FindByID(ctx, rec.ID()); err == nil {
		return domain.NewAlreadyExists("productId", fmt.Sprintf("product %s is already saved", saved.ProductID))
	}
	return r.s.saved.Save(ctx, rec)
}

// ListSavedProducts возвращает сохраненные товары в порядке сохранения
func (r userRepository) ListSavedProducts(ctx context.Context, userID string) ([]domain.SavedProduct, error) {
	r.s.mu.RLock()
	recs, err := r.s.saved.FindByIndex(ctx, "user", userID)
	r.s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	out := make([]domain.SavedProduct, len(recs))
	for i, rec := range recs {
		out[i] = rec.SavedProduct
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SavedAt.Before(out[j].SavedAt) })
	return out, nil
}

func (r userRepository) RemoveSavedProduct(ctx context.Context, userID, productID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := savedRecord{domain.SavedProduct{UserID: userID, ProductID: productID}}.ID()
	return notFound(r.s.saved.Delete(ctx, key), "saved product", productID)
}

func emailTaken(err error, email string) error {
	if core.HasCode(err, core.ErrAlreadyExists) {
		return domain.NewAlreadyExists("email", fmt.Sprintf("email %s is already registered", email))
	}
	return err
}
