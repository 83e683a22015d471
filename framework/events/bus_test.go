package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu      sync.Mutex
	handled []Event
	err     error
}

func (h *recordingHandler) Handle(ctx context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_PublishByType(t *testing.T) {
	bus := NewInMemoryEventBus()
	created := &recordingHandler{}
	deleted := &recordingHandler{}
	all := &recordingHandler{}

	bus.Subscribe("order.created", created)
	bus.Subscribe("order.deleted", deleted)
	bus.Subscribe(AllEvents, all)

	require.NoError(t, bus.Publish(context.Background(), NewBaseEvent("order.created", "o-1")))

	assert.Equal(t, 1, created.count())
	assert.Equal(t, 0, deleted.count())
	assert.Equal(t, 1, all.count())
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus()
	failing := &recordingHandler{err: errors.New("cache unavailable")}
	healthy := &recordingHandler{}

	bus.Subscribe("order.created", failing)
	bus.Subscribe("order.created", healthy)

	err := bus.Publish(context.Background(), NewBaseEvent("order.created", "o-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache unavailable")
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_Middleware(t *testing.T) {
	var order []string
	bus := NewInMemoryEventBus().WithMiddleware(
		func(ctx context.Context, event Event, next func(ctx context.Context, event Event) error) error {
			order = append(order, "first")
			return next(ctx, event)
		},
		func(ctx context.Context, event Event, next func(ctx context.Context, event Event) error) error {
			order = append(order, "second")
			return next(ctx, event)
		},
	)
	bus.Subscribe(AllEvents, EventHandlerFunc(func(ctx context.Context, event Event) error {
		order = append(order, "handler")
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), NewBaseEvent("x", "1")))
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestInMemoryEventBus_Shutdown(t *testing.T) {
	bus := NewInMemoryEventBus()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))
	require.NoError(t, bus.Shutdown(ctx))

	assert.Error(t, bus.Publish(context.Background(), NewBaseEvent("x", "1")))
}

func TestBaseEvent_Metadata(t *testing.T) {
	e := NewBaseEvent("order.created", "o-1").WithCorrelationID("corr-1").WithMetadata("user_id", "u-1")

	assert.NotEmpty(t, e.EventID())
	assert.Equal(t, "o-1", e.AggregateID())
	assert.Equal(t, "corr-1", e.Metadata().CorrelationID())
	assert.Equal(t, "u-1", e.Metadata()["user_id"])
}
