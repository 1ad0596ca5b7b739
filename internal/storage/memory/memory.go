package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/microservice-patterns/order-history-service/internal/types/order"
)

// MemoryStorage is an in-memory projection store with the same conditional
// write semantics as the Postgres one. Used in tests.
type MemoryStorage struct {
	mu     sync.RWMutex
	orders map[string]*record
}

type record struct {
	order         order.Order
	appliedEvents map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{orders: make(map[string]*record)}
}

func (s *MemoryStorage) Ping(ctx context.Context) error { return nil }
func (s *MemoryStorage) Close() error                   { return nil }

func (s *MemoryStorage) InsertOrder(ctx context.Context, o *order.Order, source order.SourceEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.OrderID]; exists {
		return false, nil
	}
	stored := *o
	stored.SearchKeywords = order.Keywords(o.RestaurantName, o.LineItems)
	s.orders[o.OrderID] = &record{
		order:         stored,
		appliedEvents: map[string]string{source.Key(): source.EventID},
	}
	return true, nil
}

// accepts reports whether the event is strictly newer than the stored marker
// for its origin entity and the order is still mutable.
func (r *record) accepts(source order.SourceEvent) bool {
	if r.order.Status.IsTerminal() {
		return false
	}
	return r.appliedEvents[source.Key()] < source.EventID
}

func (r *record) markApplied(source order.SourceEvent) {
	r.appliedEvents[source.Key()] = source.EventID
}

func (s *MemoryStorage) CancelOrder(ctx context.Context, orderID string, source order.SourceEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.orders[orderID]
	if !ok || !r.accepts(source) {
		return false, nil
	}
	r.order.Status = order.StatusCancelled
	r.markApplied(source)
	return true, nil
}

func (s *MemoryStorage) UpdateOrderStatus(ctx context.Context, orderID string, status order.OrderStatus, source order.SourceEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.orders[orderID]
	if !ok || !r.accepts(source) {
		return false, nil
	}
	r.order.Status = status
	r.markApplied(source)
	return true, nil
}

func (s *MemoryStorage) UpdateLineItems(ctx context.Context, orderID string, items []order.LineItem, source order.SourceEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.orders[orderID]
	if !ok || !r.accepts(source) {
		return false, nil
	}
	r.order.LineItems = items
	r.order.SearchKeywords = order.Keywords(r.order.RestaurantName, items)
	r.markApplied(source)
	return true, nil
}

func (s *MemoryStorage) FindOrderByID(ctx context.Context, orderID string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.orders[orderID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	o := r.order
	return &o, nil
}

func (s *MemoryStorage) ListOrdersByConsumer(ctx context.Context, consumerID string, q *order.ListQuery) ([]order.Order, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []order.Order
	for _, r := range s.orders {
		o := r.order
		if o.ConsumerID != consumerID {
			continue
		}
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		if len(q.Keywords) > 0 && !matchesKeywords(o.SearchKeywords, q.Keywords) {
			continue
		}
		matched = append(matched, o)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreationDate.Equal(matched[j].CreationDate) {
			return matched[i].CreationDate.After(matched[j].CreationDate)
		}
		return matched[i].OrderID > matched[j].OrderID
	})

	if q.After != nil {
		idx := 0
		for idx < len(matched) {
			o := matched[idx]
			if o.CreationDate.Before(q.After.CreationDate) ||
				(o.CreationDate.Equal(q.After.CreationDate) && o.OrderID < q.After.OrderID) {
				break
			}
			idx++
		}
		matched = matched[idx:]
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		return matched[:q.Limit], true, nil
	}
	return matched, false, nil
}

func matchesKeywords(have, want []string) bool {
	for _, w := range want {
		w = strings.ToLower(w)
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
