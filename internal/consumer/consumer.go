package consumer

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/microservice-patterns/order-history-service/internal/events"
	"github.com/microservice-patterns/order-history-service/internal/logger"
	"github.com/microservice-patterns/order-history-service/internal/types/order"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var eventOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "order_history_events_total",
		Help: "Order events processed by type and outcome",
	},
	[]string{"event_type", "outcome"},
)

// HistoryService is the facade the consumer applies events through.
type HistoryService interface {
	AddOrder(ctx context.Context, o *order.Order, source order.SourceEvent) (bool, error)
	CancelOrder(ctx context.Context, orderID string, source order.SourceEvent) (bool, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status order.OrderStatus, source order.SourceEvent) (bool, error)
	UpdateLineItems(ctx context.Context, orderID string, items []order.LineItem, source order.SourceEvent) (bool, error)
}

// Start consumes the order events queue and fans deliveries out to a pool of
// workers. It returns after the consume registration; workers run until ctx
// is cancelled or the deliveries channel closes.
func Start(ctx context.Context, ch *amqp.Channel, queue string, svc HistoryService, workerCount int) error {
	msgs, err := ch.Consume(
		queue,
		"order-history-service", // consumer tag
		false,                   // auto-ack
		false,                   // exclusive
		false,                   // no-local
		false,                   // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	for i := 1; i <= workerCount; i++ {
		go workerLoop(ctx, i, msgs, svc)
	}
	return nil
}

func workerLoop(ctx context.Context, id int, msgs <-chan amqp.Delivery, svc HistoryService) {
	logger.Log.Info("consumer worker started", zap.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("consumer worker stopped", zap.Int("worker", id))
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Log.Info("deliveries channel closed", zap.Int("worker", id))
				return
			}
			ProcessDelivery(ctx, msg, svc)
		}
	}
}

// ProcessDelivery applies one delivery and settles it: Ack when the event was
// applied or was a duplicate (a duplicate is a successful no-op), reject to
// the dead letter queue on malformed payloads, requeue on transient store
// errors since retries are idempotent.
func ProcessDelivery(ctx context.Context, msg amqp.Delivery, svc HistoryService) {
	var env events.Envelope
	if err := json.Unmarshal(msg.Body, &env); err != nil {
		logger.Log.Warn("malformed event envelope", zap.Error(err))
		eventOutcomes.WithLabelValues("unknown", "malformed").Inc()
		msg.Nack(false, false)
		return
	}

	event, err := events.Decode(env)
	if err != nil {
		logger.Log.Warn("undecodable event",
			zap.String("event_type", env.EventType),
			zap.String("event_id", env.EventID),
			zap.Error(err),
		)
		eventOutcomes.WithLabelValues(env.EventType, "malformed").Inc()
		msg.Nack(false, false)
		return
	}

	applied, err := dispatch(ctx, svc, event, env.Source())
	if err != nil {
		logger.Log.Error("apply event",
			zap.String("event_type", env.EventType),
			zap.String("event_id", env.EventID),
			zap.Error(err),
		)
		eventOutcomes.WithLabelValues(env.EventType, "error").Inc()
		msg.Nack(false, true)
		return
	}

	outcome := "applied"
	if !applied {
		outcome = "duplicate"
		logger.Log.Debug("duplicate or stale event",
			zap.String("event_type", env.EventType),
			zap.String("event_id", env.EventID),
		)
	}
	eventOutcomes.WithLabelValues(env.EventType, outcome).Inc()
	msg.Ack(false)
}

var errUnhandledEvent = errors.New("unhandled event variant")

func dispatch(ctx context.Context, svc HistoryService, event events.Event, source order.SourceEvent) (bool, error) {
	switch e := event.(type) {
	case events.OrderCreated:
		o := &order.Order{
			OrderID:        e.OrderID,
			ConsumerID:     e.ConsumerID,
			Status:         order.StatusCreatePending,
			LineItems:      e.LineItems,
			RestaurantName: e.RestaurantName,
			CreationDate:   e.CreationDate,
		}
		return svc.AddOrder(ctx, o, source)
	case events.OrderCancelled:
		return svc.CancelOrder(ctx, e.OrderID, source)
	case events.OrderStatusChanged:
		return svc.UpdateOrderStatus(ctx, e.OrderID, e.Status, source)
	case events.LineItemsChanged:
		return svc.UpdateLineItems(ctx, e.OrderID, e.LineItems, source)
	default:
		return false, errUnhandledEvent
	}
}
