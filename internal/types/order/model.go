package order

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusCreatePending OrderStatus = "CREATE_PENDING"
	StatusApproved      OrderStatus = "APPROVED"
	StatusRejected      OrderStatus = "REJECTED"
	StatusCancelPending OrderStatus = "CANCEL_PENDING"
	StatusCancelled     OrderStatus = "CANCELLED"
)

// IsTerminal reports whether no further status transition is accepted.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCancelled
}

type LineItem struct {
	MenuItemID string  `db:"menu_item_id" json:"menu_item_id"`
	Name       string  `db:"name" json:"name"`
	Price      float64 `db:"price" json:"price"`
	Quantity   int     `db:"quantity" json:"quantity"`
}

// Order is the denormalized projection of a single order, maintained by
// applying lifecycle events. SearchKeywords is internal to the store and
// never serialized to clients.
type Order struct {
	OrderID        string      `db:"order_id" json:"order_id"`
	ConsumerID     string      `db:"consumer_id" json:"-"`
	Status         OrderStatus `db:"status" json:"status"`
	LineItems      []LineItem  `db:"line_items" json:"line_items"`
	RestaurantName string      `db:"restaurant_name" json:"restaurant_name"`
	CreationDate   time.Time   `db:"creation_date" json:"creation_date"`
	SearchKeywords []string    `db:"search_keywords" json:"-"`
}

// SourceEvent identifies the event that caused a mutation. EventID is
// monotonically increasing per origin entity, so comparing it against the
// stored marker for the same Key detects duplicate and stale deliveries.
type SourceEvent struct {
	AggregateType string `json:"aggregate_type"`
	AggregateID   string `json:"aggregate_id"`
	EventID       string `json:"event_id"`
}

// Key names the origin entity the marker is tracked under.
func (s SourceEvent) Key() string {
	return s.AggregateType + s.AggregateID
}

// Keywords derives the lowercased search token set for an order: the full
// restaurant name, each full line item name, and the individual words of both.
func Keywords(restaurantName string, items []LineItem) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(v string) {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	addPhrase := func(v string) {
		add(v)
		for _, w := range strings.Fields(v) {
			add(w)
		}
	}
	addPhrase(restaurantName)
	for _, it := range items {
		addPhrase(it.Name)
	}
	return out
}

// HistoryFilter narrows and paginates a consumer's order listing.
// PageSize nil means no limit; zero or negative is invalid input.
type HistoryFilter struct {
	Status        OrderStatus
	Keywords      []string
	PageSize      *int
	StartKeyToken string
}

// SortKey is the position of an order in the canonical listing order
// (creation date descending, order id descending).
type SortKey struct {
	CreationDate time.Time
	OrderID      string
}

// ListQuery is the storage-level form of a validated HistoryFilter.
type ListQuery struct {
	Status   OrderStatus
	Keywords []string
	Limit    int
	After    *SortKey
}

// OrderHistory is one page of a consumer's listing. StartKeyToken is set
// only when more results remain beyond this page.
type OrderHistory struct {
	Orders        []Order `json:"orders"`
	StartKeyToken string  `json:"start_key,omitempty"`
}
