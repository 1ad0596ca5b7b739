package history

import (
	"context"

	"github.com/microservice-patterns/order-history-service/internal/types/order"
)

type OrderHistoryRepository interface {
	InsertOrder(ctx context.Context, o *order.Order, source order.SourceEvent) (bool, error)
	CancelOrder(ctx context.Context, orderID string, source order.SourceEvent) (bool, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status order.OrderStatus, source order.SourceEvent) (bool, error)
	UpdateLineItems(ctx context.Context, orderID string, items []order.LineItem, source order.SourceEvent) (bool, error)
	FindOrderByID(ctx context.Context, orderID string) (*order.Order, error)
	ListOrdersByConsumer(ctx context.Context, consumerID string, q *order.ListQuery) (orders []order.Order, more bool, err error)
}
