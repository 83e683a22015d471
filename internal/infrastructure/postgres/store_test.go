package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/framework/cqrs"
	"github.com/akriventsev/ordering/framework/transport"
	"github.com/akriventsev/ordering/internal/application"
	"github.com/akriventsev/ordering/internal/domain"
	"github.com/akriventsev/ordering/internal/infrastructure/postgres"
)

// openStore подключается к ORDERING_TEST_DATABASE_URL и применяет миграции
func openStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("ORDERING_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ORDERING_TEST_DATABASE_URL not set, skipping PostgreSQL integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, postgres.Migrate(ctx, dsn, logger))

	store, err := postgres.NewStore(ctx, postgres.Config{DSN: dsn, MaxConns: 8, LockTimeout: 2 * time.Second}, logger)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func seed(t *testing.T, store *postgres.Store, stock int) (userID, productID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	userID = uuid.NewString()
	require.NoError(t, store.Users().Create(ctx, &domain.User{
		ID: userID, Email: userID + "@example.com", FirstName: "Ann", LastName: "Lee",
		Preference: domain.UserPreference{ReceiveEmail: true}, CreatedAt: now, UpdatedAt: now,
	}))

	productID = uuid.NewString()
	require.NoError(t, store.Products().Create(ctx, &domain.Product{
		ID: productID, Name: "Kettle", Category: domain.CategoryKitchenware,
		Price: decimal.RequireFromString("10.00"), Stock: stock, CreatedAt: now, UpdatedAt: now,
	}))
	return userID, productID
}

func newService(t *testing.T, store *postgres.Store) (transport.CommandBus, transport.QueryBus) {
	t.Helper()
	commands := transport.NewInMemoryCommandBus()
	queries := transport.NewInMemoryQueryBus()
	svc := application.NewService(application.Config{
		Store:  store,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Retry:  application.DefaultRetryPolicy(),
	})
	require.NoError(t, svc.Register(commands, queries))
	return commands, queries
}

func orderCommand(userID, productID string, qty int) application.CreateOrderCommand {
	price := decimal.NewFromInt(10)
	return application.CreateOrderCommand{
		OrderID: uuid.NewString(),
		Request: application.CreateOrderRequest{
			UserID:     userID,
			OrderItems: []application.OrderItemRequest{{ProductID: productID, UnitPrice: application.NewMoney(price), Quantity: &qty}},
		},
	}
}

func TestPostgres_CreateOrderRoundTrip(t *testing.T) {
	store := openStore(t)
	commands, queries := newService(t, store)
	ctx := context.Background()
	userID, productID := seed(t, store, 10)

	cmd := orderCommand(userID, productID, 2)
	require.NoError(t, commands.Send(ctx, cmd))

	view, err := cqrs.Ask[*application.OrderView](ctx, queries, application.GetOrderQuery{OrderID: cmd.OrderID})
	require.NoError(t, err)
	assert.Equal(t, "20", view.Total.String())
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Kettle", view.Items[0].Product.Name)

	p, err := store.Products().Get(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 8, p.Stock)
	assert.Equal(t, int64(2), p.Version)

	err = store.Products().Delete(ctx, productID)
	assert.True(t, core.HasCode(err, core.ErrConflict))
	err = store.Users().Delete(ctx, userID)
	assert.True(t, core.HasCode(err, core.ErrConflict))
}

func TestPostgres_UnitPriceKeptExactly(t *testing.T) {
	store := openStore(t)
	commands, queries := newService(t, store)
	ctx := context.Background()
	userID, productID := seed(t, store, 10)

	withPrice := func(price string) application.CreateOrderCommand {
		cmd := orderCommand(userID, productID, 2)
		cmd.Request.OrderItems[0].UnitPrice = application.NewMoney(decimal.RequireFromString(price))
		return cmd
	}

	cmd := withPrice("10.05")
	require.NoError(t, commands.Send(ctx, cmd))
	view, err := cqrs.Ask[*application.OrderView](ctx, queries, application.GetOrderQuery{OrderID: cmd.OrderID})
	require.NoError(t, err)
	assert.Equal(t, "10.05", view.Items[0].UnitPrice.String())
	assert.Equal(t, "20.1", view.Total.String())

	for _, price := range []string{"10.005", "99999999999.5"} {
		err := commands.Send(ctx, withPrice(price))
		require.Error(t, err, price)
		assert.True(t, core.HasCode(err, core.ErrValidation), "price %s: %v", price, err)
	}

	p, err := store.Products().Get(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 8, p.Stock)
}

func TestPostgres_ConcurrentOrdersNeverOversell(t *testing.T) {
	store := openStore(t)
	commands, _ := newService(t, store)
	userID, productID := seed(t, store, 5)

	results := make([]error, 2)
	var g errgroup.Group
	for i := range results {
		i := i
		g.Go(func() error {
			results[i] = commands.Send(context.Background(), orderCommand(userID, productID, 3))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok, short := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case core.HasCode(err, domain.ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)

	p, err := store.Products().Get(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
}

func TestPostgres_UsersAndSavedProducts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	userID, productID := seed(t, store, 1)

	saved := domain.SavedProduct{UserID: userID, ProductID: productID, SavedAt: time.Now().UTC()}
	require.NoError(t, store.Users().SaveProduct(ctx, saved))
	assert.True(t, core.HasCode(store.Users().SaveProduct(ctx, saved), core.ErrAlreadyExists))

	u, err := store.Users().Update(ctx, userID, func(u *domain.User) error {
		u.Preference.ReceiveEmail = false
		return nil
	})
	require.NoError(t, err)
	assert.False(t, u.Preference.ReceiveEmail)

	require.NoError(t, store.Users().Delete(ctx, userID))
	_, err = store.Users().Get(ctx, userID)
	assert.True(t, core.HasCode(err, core.ErrNotFound))

	list, err := store.Users().ListSavedProducts(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
