package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/ordering/framework/core"
	"github.com/akriventsev/ordering/internal/domain"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

// fakeUnit хранилище одного теста: stock фиксируется только при успешном fn
type fakeUnit struct {
	users    map[string]bool
	stock    map[string]int
	inserted []*domain.Order
}

func (u *fakeUnit) UserExists(ctx context.Context, userID string) (bool, error) {
	return u.users[userID], nil
}

func (u *fakeUnit) GetStock(ctx context.Context, productID string) (int, error) {
	s, ok := u.stock[productID]
	if !ok {
		return 0, domain.NewNotFound("product", productID)
	}
	return s, nil
}

func (u *fakeUnit) TryDecrement(ctx context.Context, productID string, quantity int) error {
	u.stock[productID] -= quantity
	return nil
}

func (u *fakeUnit) InsertOrder(ctx context.Context, order *domain.Order) error {
	u.inserted = append(u.inserted, order)
	return nil
}

// fakeRunner возвращает ошибки из failures по очереди, затем выполняет fn
type fakeRunner struct {
	unit     *fakeUnit
	failures []error
	calls    int
}

func (r *fakeRunner) RunOrderUnit(ctx context.Context, fn func(ctx context.Context, unit domain.OrderUnit) error) error {
	r.calls++
	if len(r.failures) > 0 {
		err := r.failures[0]
		r.failures = r.failures[1:]
		return err
	}

	snapshot := make(map[string]int, len(r.unit.stock))
	for k, v := range r.unit.stock {
		snapshot[k] = v
	}
	inserted := len(r.unit.inserted)
	if err := fn(ctx, r.unit); err != nil {
		r.unit.stock = snapshot
		r.unit.inserted = r.unit.inserted[:inserted]
		return err
	}
	return nil
}

func assembled(t *testing.T, userID string, items map[string]int) AssembledOrder {
	t.Helper()
	v := ValidatedOrder{UserID: userID}
	for pid, q := range items {
		v.Items = append(v.Items, ValidatedItem{ProductID: pid, Quantity: q})
	}
	a, err := NewAssembler(nil, nil).Assemble("o1", v)
	require.NoError(t, err)
	return a
}

func newFakeRunner(stock map[string]int, failures ...error) *fakeRunner {
	return &fakeRunner{
		unit:     &fakeUnit{users: map[string]bool{"u1": true}, stock: stock},
		failures: failures,
	}
}

func conflict() error {
	return fmt.Errorf("row changed: %w", domain.ErrConcurrentUpdate)
}

func TestCoordinator_Commits(t *testing.T) {
	runner := newFakeRunner(map[string]int{"p1": 10, "p2": 3})
	c := NewCoordinator(runner, fastRetry, quietLogger, nil)

	err := c.CreateOrder(context.Background(), assembled(t, "u1", map[string]int{"p1": 2, "p2": 3}))
	require.NoError(t, err)

	assert.Equal(t, 8, runner.unit.stock["p1"])
	assert.Equal(t, 0, runner.unit.stock["p2"])
	assert.Len(t, runner.unit.inserted, 1)
}

func TestCoordinator_ReportsAllShortages(t *testing.T) {
	runner := newFakeRunner(map[string]int{"p1": 1, "p2": 5, "p3": 0})
	c := NewCoordinator(runner, fastRetry, quietLogger, nil)

	err := c.CreateOrder(context.Background(), assembled(t, "u1", map[string]int{"p1": 2, "p2": 5, "p3": 1}))
	require.True(t, core.HasCode(err, domain.ErrInsufficientStock))
	assert.Equal(t, []domain.Shortage{
		{ProductID: "p1", Requested: 2, Available: 1},
		{ProductID: "p3", Requested: 1, Available: 0},
	}, domain.ShortagesOf(err))

	assert.Equal(t, map[string]int{"p1": 1, "p2": 5, "p3": 0}, runner.unit.stock)
	assert.Empty(t, runner.unit.inserted)
	assert.Equal(t, 1, runner.calls)
}

func TestCoordinator_UnknownUserAndProduct(t *testing.T) {
	runner := newFakeRunner(map[string]int{"p1": 10})
	c := NewCoordinator(runner, fastRetry, quietLogger, nil)

	err := c.CreateOrder(context.Background(), assembled(t, "ghost", map[string]int{"p1": 1}))
	require.True(t, core.HasCode(err, core.ErrNotFound))
	assert.Contains(t, err.Error(), "user ghost")

	err = c.CreateOrder(context.Background(), assembled(t, "u1", map[string]int{"p1": 1, "p9": 1}))
	require.True(t, core.HasCode(err, core.ErrNotFound))
	assert.Contains(t, err.Error(), "product p9")
	assert.Equal(t, 10, runner.unit.stock["p1"])
}

func TestCoordinator_RetriesConflicts(t *testing.T) {
	runner := newFakeRunner(map[string]int{"p1": 10}, conflict(), conflict())
	c := NewCoordinator(runner, fastRetry, quietLogger, nil)

	require.NoError(t, c.CreateOrder(context.Background(), assembled(t, "u1", map[string]int{"p1": 1})))
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, 9, runner.unit.stock["p1"])
}

func TestCoordinator_RetriesExhausted(t *testing.T) {
	runner := newFakeRunner(map[string]int{"p1": 10}, conflict(), conflict(), conflict(), conflict())
	c := NewCoordinator(runner, fastRetry, quietLogger, nil)

	err := c.CreateOrder(context.Background(), assembled(t, "u1", map[string]int{"p1": 1}))
	require.True(t, core.HasCode(err, core.ErrTransactionFailed))
	assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)
	assert.Equal(t, 3, runner.calls)
}

func TestCoordinator_StorageFailureNotRetried(t *testing.T) {
	runner := newFakeRunner(map[string]int{"p1": 10}, errors.New("connection reset"))
	c := NewCoordinator(runner, fastRetry, quietLogger, nil)

	err := c.CreateOrder(context.Background(), assembled(t, "u1", map[string]int{"p1": 1}))
	require.True(t, core.HasCode(err, core.ErrTransactionFailed))
	assert.Equal(t, 1, runner.calls)
}

func TestCoordinator_CancelledDuringBackoff(t *testing.T) {
	runner := newFakeRunner(map[string]int{"p1": 10}, conflict(), conflict())
	c := NewCoordinator(runner, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Hour, MaxDelay: time.Hour}, quietLogger, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.CreateOrder(ctx, assembled(t, "u1", map[string]int{"p1": 1}))
	require.True(t, core.HasCode(err, core.ErrTransactionFailed))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, runner.calls)
}
