package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/ordering/framework/events"
)

type fakeConn struct {
	failures int
	msgs     []*nats.Msg
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("nats: connection closed")
	}
	f.msgs = append(f.msgs, m)
	return nil
}

type orderCreated struct {
	*events.BaseEvent
	OrderID string `json:"orderId"`
}

func TestNATSEventAdapter_Publish(t *testing.T) {
	conn := &fakeConn{}
	adapter, err := NewNATSEventAdapter(NATSEventConfig{Conn: conn, SubjectPrefix: "orders"})
	require.NoError(t, err)

	event := orderCreated{
		BaseEvent: events.NewBaseEvent("order.created", "o-1").WithCorrelationID("corr-1"),
		OrderID:   "o-1",
	}
	require.NoError(t, adapter.Handle(context.Background(), event))

	require.Len(t, conn.msgs, 1)
	msg := conn.msgs[0]
	assert.Equal(t, "orders.order.created", msg.Subject)
	assert.Equal(t, event.EventID(), msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "corr-1", msg.Header.Get("X-Correlation-ID"))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, "order.created", env.EventType)
	assert.Equal(t, "o-1", env.AggregateID)
	assert.JSONEq(t, `{"orderId":"o-1"}`, string(env.Payload))
}

func TestNATSEventAdapter_Retry(t *testing.T) {
	conn := &fakeConn{failures: 2}
	adapter, err := NewNATSEventAdapter(NATSEventConfig{Conn: conn, MaxAttempts: 3, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, adapter.Publish(context.Background(), events.NewBaseEvent("order.deleted", "o-1")))
	assert.Len(t, conn.msgs, 1)

	conn.failures = 5
	err = adapter.Publish(context.Background(), events.NewBaseEvent("order.deleted", "o-1"))
	assert.Error(t, err)
}

func TestNewNATSEventAdapter_RequiresConn(t *testing.T) {
	_, err := NewNATSEventAdapter(NATSEventConfig{})
	assert.Error(t, err)
}
