package history

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/microservice-patterns/order-history-service/internal/types/order"
)

// cursor encodes the sort position of the last item of a page. Resuming with
// it scans strictly after that position, so pages never overlap even when new
// orders are inserted between calls.
type cursor struct {
	ConsumerID   string    `json:"consumer_id"`
	CreationDate time.Time `json:"creation_date"`
	OrderID      string    `json:"order_id"`
}

func encodeCursor(consumerID string, last order.Order) string {
	c := cursor{
		ConsumerID:   consumerID,
		CreationDate: last.CreationDate,
		OrderID:      last.OrderID,
	}
	body, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(body)
}

// decodeCursor validates token structure before the store is ever touched.
func decodeCursor(token, consumerID string) (*order.SortKey, error) {
	body, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	var c cursor
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	if c.OrderID == "" || c.CreationDate.IsZero() {
		return nil, fmt.Errorf("incomplete token")
	}
	if c.ConsumerID != consumerID {
		return nil, fmt.Errorf("token issued for another consumer")
	}
	return &order.SortKey{CreationDate: c.CreationDate, OrderID: c.OrderID}, nil
}
