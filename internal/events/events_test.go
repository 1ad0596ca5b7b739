package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/microservice-patterns/order-history-service/internal/types/order"
	"github.com/stretchr/testify/assert"
)

func TestDecodeOrderCreated(t *testing.T) {
	payload, _ := json.Marshal(OrderCreated{
		OrderID:        "order-1",
		ConsumerID:     "consumer-1",
		RestaurantName: "Ajanta",
		LineItems:      []order.LineItem{{MenuItemID: "-1", Name: "Chicken Vindaloo", Quantity: 1}},
		CreationDate:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	env := Envelope{
		EventType:     TypeOrderCreated,
		AggregateType: "Order",
		AggregateID:   "order-1",
		EventID:       "0000000001",
		Payload:       payload,
	}

	event, err := Decode(env)
	assert.NoError(t, err)

	created, ok := event.(OrderCreated)
	assert.True(t, ok)
	assert.Equal(t, "order-1", created.OrderID)
	assert.Equal(t, "Ajanta", created.RestaurantName)
	assert.Len(t, created.LineItems, 1)
}

func TestDecodeOrderCancelled(t *testing.T) {
	env := Envelope{
		EventType: TypeOrderCancelled,
		Payload:   json.RawMessage(`{"order_id":"order-1"}`),
	}
	event, err := Decode(env)
	assert.NoError(t, err)
	assert.Equal(t, OrderCancelled{OrderID: "order-1"}, event)
}

func TestDecodeOrderStatusChanged(t *testing.T) {
	env := Envelope{
		EventType: TypeOrderStatusChanged,
		Payload:   json.RawMessage(`{"order_id":"order-1","status":"APPROVED"}`),
	}
	event, err := Decode(env)
	assert.NoError(t, err)
	assert.Equal(t, OrderStatusChanged{OrderID: "order-1", Status: order.StatusApproved}, event)
}

func TestDecodeLineItemsChanged(t *testing.T) {
	env := Envelope{
		EventType: TypeLineItemsChanged,
		Payload:   json.RawMessage(`{"order_id":"order-1","line_items":[{"menu_item_id":"7","name":"Naan","price":3,"quantity":2}]}`),
	}
	event, err := Decode(env)
	assert.NoError(t, err)

	changed, ok := event.(LineItemsChanged)
	assert.True(t, ok)
	assert.Equal(t, "Naan", changed.LineItems[0].Name)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode(Envelope{EventType: "OrderShipped"})
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestDecodeBadPayload(t *testing.T) {
	_, err := Decode(Envelope{
		EventType: TypeOrderCreated,
		Payload:   json.RawMessage(`{not json`),
	})
	assert.Error(t, err)
}

func TestEnvelopeSource(t *testing.T) {
	env := Envelope{AggregateType: "Order", AggregateID: "order-1", EventID: "42"}
	src := env.Source()
	assert.Equal(t, order.SourceEvent{AggregateType: "Order", AggregateID: "order-1", EventID: "42"}, src)
	assert.Equal(t, "Orderorder-1", src.Key())
}
