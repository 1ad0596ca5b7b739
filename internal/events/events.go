package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/microservice-patterns/order-history-service/internal/types/order"
)

const (
	TypeOrderCreated       = "OrderCreated"
	TypeOrderCancelled     = "OrderCancelled"
	TypeLineItemsChanged   = "LineItemsChanged"
	TypeOrderStatusChanged = "OrderStatusChanged"
)

var ErrUnknownEventType = errors.New("unknown event type")

// Envelope is the wire form of an order lifecycle event. The aggregate
// type/id plus event id form the idempotency identity.
type Envelope struct {
	EventType     string          `json:"eventType"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventID       string          `json:"eventId"`
	Payload       json.RawMessage `json:"payload"`
}

func (e Envelope) Source() order.SourceEvent {
	return order.SourceEvent{
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		EventID:       e.EventID,
	}
}

// Event is the closed set of order history mutations.
type Event interface {
	eventType() string
}

type OrderCreated struct {
	OrderID        string           `json:"order_id"`
	ConsumerID     string           `json:"consumer_id"`
	RestaurantName string           `json:"restaurant_name"`
	LineItems      []order.LineItem `json:"line_items"`
	CreationDate   time.Time        `json:"creation_date"`
}

type OrderCancelled struct {
	OrderID string `json:"order_id"`
}

type LineItemsChanged struct {
	OrderID   string           `json:"order_id"`
	LineItems []order.LineItem `json:"line_items"`
}

type OrderStatusChanged struct {
	OrderID string            `json:"order_id"`
	Status  order.OrderStatus `json:"status"`
}

func (OrderCreated) eventType() string       { return TypeOrderCreated }
func (OrderCancelled) eventType() string     { return TypeOrderCancelled }
func (LineItemsChanged) eventType() string   { return TypeLineItemsChanged }
func (OrderStatusChanged) eventType() string { return TypeOrderStatusChanged }

// Decode parses the envelope payload into its concrete event variant.
func Decode(env Envelope) (Event, error) {
	switch env.EventType {
	case TypeOrderCreated:
		var e OrderCreated
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return e, nil
	case TypeOrderCancelled:
		var e OrderCancelled
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return e, nil
	case TypeLineItemsChanged:
		var e LineItemsChanged
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return e, nil
	case TypeOrderStatusChanged:
		var e OrderStatusChanged
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.EventType)
	}
}
