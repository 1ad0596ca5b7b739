package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/microservice-patterns/order-history-service/internal/types/order"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidFilter = errors.New("invalid history filter")
)

type Service struct {
	repo OrderHistoryRepository
}

func NewService(r OrderHistoryRepository) *Service {
	return &Service{repo: r}
}

// AddOrder creates the projection for a newly created order. It returns false
// when the creation event was already applied; callers must treat that as a
// successful no-op, not a failure.
func (s *Service) AddOrder(ctx context.Context, o *order.Order, source order.SourceEvent) (bool, error) {
	return s.repo.InsertOrder(ctx, o, source)
}

// CancelOrder marks the order CANCELLED. False means the order was already
// cancelled, never existed, or the event is stale.
func (s *Service) CancelOrder(ctx context.Context, orderID string, source order.SourceEvent) (bool, error) {
	return s.repo.CancelOrder(ctx, orderID, source)
}

func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status order.OrderStatus, source order.SourceEvent) (bool, error) {
	return s.repo.UpdateOrderStatus(ctx, orderID, status, source)
}

func (s *Service) UpdateLineItems(ctx context.Context, orderID string, items []order.LineItem, source order.SourceEvent) (bool, error) {
	return s.repo.UpdateLineItems(ctx, orderID, items, source)
}

func (s *Service) FindOrder(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := s.repo.FindOrderByID(ctx, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// FindOrderHistory lists a consumer's orders, most recent first, applying the
// filter and resuming from its cursor when present. The filter is validated
// before any store access.
func (s *Service) FindOrderHistory(ctx context.Context, consumerID string, filter *order.HistoryFilter) (*order.OrderHistory, error) {
	if filter == nil {
		filter = &order.HistoryFilter{}
	}
	q, err := buildListQuery(consumerID, filter)
	if err != nil {
		return nil, err
	}

	orders, more, err := s.repo.ListOrdersByConsumer(ctx, consumerID, q)
	if err != nil {
		return nil, err
	}

	result := &order.OrderHistory{Orders: orders}
	if more && len(orders) > 0 {
		result.StartKeyToken = encodeCursor(consumerID, orders[len(orders)-1])
	}
	return result, nil
}

func buildListQuery(consumerID string, filter *order.HistoryFilter) (*order.ListQuery, error) {
	q := &order.ListQuery{
		Status:   filter.Status,
		Keywords: filter.Keywords,
	}
	if filter.PageSize != nil {
		if *filter.PageSize <= 0 {
			return nil, ErrInvalidFilter
		}
		q.Limit = *filter.PageSize
	}
	if filter.StartKeyToken != "" {
		after, err := decodeCursor(filter.StartKeyToken, consumerID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
		q.After = after
	}
	return q, nil
}
