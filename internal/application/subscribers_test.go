package application

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/ordering/framework/events"
	"github.com/akriventsev/ordering/internal/domain"
)

type fakeInvalidator struct {
	keys     []string
	prefixes []string
}

func (f *fakeInvalidator) InvalidateKeys(ctx context.Context, keys ...string) error {
	f.keys = append(f.keys, keys...)
	return nil
}

func (f *fakeInvalidator) InvalidatePrefix(ctx context.Context, prefix string) error {
	f.prefixes = append(f.prefixes, prefix)
	return nil
}

func TestSubscribeCacheInvalidation(t *testing.T) {
	bus := events.NewInMemoryEventBus()
	cache := &fakeInvalidator{}
	SubscribeCacheInvalidation(bus, cache, quietLogger)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, domain.NewOrderStatusChanged("o1", domain.OrderStatusPending, domain.OrderStatusComplete)))
	require.NoError(t, bus.Publish(ctx, domain.NewOrderDeleted("o2")))
	require.NoError(t, bus.Publish(ctx, domain.NewProductUpdated("p1")))
	require.NoError(t, bus.Publish(ctx, domain.NewOrderCreated(&domain.Order{ID: "o3"})))

	assert.Equal(t, []string{"order:o1", "order:o2"}, cache.keys)
	assert.Equal(t, []string{"order:"}, cache.prefixes)
}

func TestNewOrderView_MissingProductHasNoSnapshot(t *testing.T) {
	order := &domain.Order{
		ID: "o1",
		Items: []domain.OrderItem{
			{ProductID: "p1", UnitPrice: decimal.NewFromInt(3), Quantity: 2},
			{ProductID: "p2", UnitPrice: decimal.RequireFromString("0.5"), Quantity: 3},
		},
	}
	products := map[string]*domain.Product{
		"p1": {ID: "p1", Name: "Mug", Category: domain.CategoryKitchenware},
	}

	view := NewOrderView(order, products)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Mug", view.Items[0].Product.Name)
	assert.Nil(t, view.Items[1].Product)
	assert.Equal(t, "7.5", view.Total.String())
}
