package storage

import (
	"context"

	"github.com/microservice-patterns/order-history-service/internal/types/order"
)

// OrderHistoryRepository отвечает за проекцию истории заказов.
//
// Every mutating operation is a single conditional write: it takes effect only
// if the incoming event is strictly newer than the stored marker for the same
// origin entity, and the returned bool reports whether it did.
type OrderHistoryRepository interface {
	InsertOrder(ctx context.Context, o *order.Order, source order.SourceEvent) (bool, error)
	CancelOrder(ctx context.Context, orderID string, source order.SourceEvent) (bool, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status order.OrderStatus, source order.SourceEvent) (bool, error)
	UpdateLineItems(ctx context.Context, orderID string, items []order.LineItem, source order.SourceEvent) (bool, error)
	FindOrderByID(ctx context.Context, orderID string) (*order.Order, error)
	ListOrdersByConsumer(ctx context.Context, consumerID string, q *order.ListQuery) (orders []order.Order, more bool, err error)
}

// Storage объединяет все репозитории.
type Storage interface {
	OrderHistoryRepository

	// Для управления соединением
	Ping(ctx context.Context) error
	Close() error
}
