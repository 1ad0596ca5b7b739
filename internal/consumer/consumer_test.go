package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/microservice-patterns/order-history-service/internal/events"
	"github.com/microservice-patterns/order-history-service/internal/types/order"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type mockAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockAcknowledger) Ack(tag uint64, multiple bool) error {
	m.acked = true
	return nil
}

func (m *mockAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockAcknowledger) Reject(tag uint64, requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

type mockHistoryService struct {
	addOrderFn          func(ctx context.Context, o *order.Order, source order.SourceEvent) (bool, error)
	cancelOrderFn       func(ctx context.Context, orderID string, source order.SourceEvent) (bool, error)
	updateOrderStatusFn func(ctx context.Context, orderID string, status order.OrderStatus, source order.SourceEvent) (bool, error)
	updateLineItemsFn   func(ctx context.Context, orderID string, items []order.LineItem, source order.SourceEvent) (bool, error)
}

func (m *mockHistoryService) AddOrder(ctx context.Context, o *order.Order, source order.SourceEvent) (bool, error) {
	return m.addOrderFn(ctx, o, source)
}
func (m *mockHistoryService) CancelOrder(ctx context.Context, orderID string, source order.SourceEvent) (bool, error) {
	return m.cancelOrderFn(ctx, orderID, source)
}
func (m *mockHistoryService) UpdateOrderStatus(ctx context.Context, orderID string, status order.OrderStatus, source order.SourceEvent) (bool, error) {
	return m.updateOrderStatusFn(ctx, orderID, status, source)
}
func (m *mockHistoryService) UpdateLineItems(ctx context.Context, orderID string, items []order.LineItem, source order.SourceEvent) (bool, error) {
	return m.updateLineItemsFn(ctx, orderID, items, source)
}

func delivery(t *testing.T, env events.Envelope) (amqp.Delivery, *mockAcknowledger) {
	t.Helper()
	body, err := json.Marshal(env)
	assert.NoError(t, err)
	ack := &mockAcknowledger{}
	return amqp.Delivery{Acknowledger: ack, Body: body}, ack
}

func createdEnvelope(t *testing.T, orderID string) events.Envelope {
	t.Helper()
	payload, err := json.Marshal(events.OrderCreated{
		OrderID:        orderID,
		ConsumerID:     uuid.NewString(),
		RestaurantName: "Ajanta",
		LineItems:      []order.LineItem{{MenuItemID: "-1", Name: "Chicken Vindaloo", Quantity: 1}},
		CreationDate:   time.Now().UTC(),
	})
	assert.NoError(t, err)
	return events.Envelope{
		EventType:     events.TypeOrderCreated,
		AggregateType: "Order",
		AggregateID:   orderID,
		EventID:       "0000000001",
		Payload:       payload,
	}
}

func TestProcessDeliveryApplied(t *testing.T) {
	var gotSource order.SourceEvent
	svc := &mockHistoryService{
		addOrderFn: func(ctx context.Context, o *order.Order, source order.SourceEvent) (bool, error) {
			gotSource = source
			assert.Equal(t, order.StatusCreatePending, o.Status)
			return true, nil
		},
	}

	msg, ack := delivery(t, createdEnvelope(t, "order-1"))
	ProcessDelivery(context.Background(), msg, svc)

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	assert.Equal(t, "Orderorder-1", gotSource.Key())
}

func TestProcessDeliveryDuplicateIsAcked(t *testing.T) {
	svc := &mockHistoryService{
		addOrderFn: func(ctx context.Context, o *order.Order, source order.SourceEvent) (bool, error) {
			return false, nil
		},
	}

	msg, ack := delivery(t, createdEnvelope(t, "order-1"))
	ProcessDelivery(context.Background(), msg, svc)

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestProcessDeliveryMalformedBody(t *testing.T) {
	ack := &mockAcknowledger{}
	msg := amqp.Delivery{Acknowledger: ack, Body: []byte("not json")}

	ProcessDelivery(context.Background(), msg, &mockHistoryService{})

	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestProcessDeliveryUnknownEventType(t *testing.T) {
	msg, ack := delivery(t, events.Envelope{EventType: "OrderShipped", EventID: "1"})

	ProcessDelivery(context.Background(), msg, &mockHistoryService{})

	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestProcessDeliveryStoreErrorRequeues(t *testing.T) {
	svc := &mockHistoryService{
		addOrderFn: func(ctx context.Context, o *order.Order, source order.SourceEvent) (bool, error) {
			return false, errors.New("connection refused")
		},
	}

	msg, ack := delivery(t, createdEnvelope(t, "order-1"))
	ProcessDelivery(context.Background(), msg, svc)

	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestProcessDeliveryCancelled(t *testing.T) {
	var cancelledID string
	svc := &mockHistoryService{
		cancelOrderFn: func(ctx context.Context, orderID string, source order.SourceEvent) (bool, error) {
			cancelledID = orderID
			return true, nil
		},
	}

	msg, ack := delivery(t, events.Envelope{
		EventType:     events.TypeOrderCancelled,
		AggregateType: "Order",
		AggregateID:   "order-1",
		EventID:       "0000000002",
		Payload:       json.RawMessage(`{"order_id":"order-1"}`),
	})
	ProcessDelivery(context.Background(), msg, svc)

	assert.True(t, ack.acked)
	assert.Equal(t, "order-1", cancelledID)
}

func TestProcessDeliveryStatusChanged(t *testing.T) {
	var gotStatus order.OrderStatus
	svc := &mockHistoryService{
		updateOrderStatusFn: func(ctx context.Context, orderID string, status order.OrderStatus, source order.SourceEvent) (bool, error) {
			gotStatus = status
			return true, nil
		},
	}

	msg, ack := delivery(t, events.Envelope{
		EventType:     events.TypeOrderStatusChanged,
		AggregateType: "Order",
		AggregateID:   "order-1",
		EventID:       "0000000003",
		Payload:       json.RawMessage(`{"order_id":"order-1","status":"APPROVED"}`),
	})
	ProcessDelivery(context.Background(), msg, svc)

	assert.True(t, ack.acked)
	assert.Equal(t, order.StatusApproved, gotStatus)
}
