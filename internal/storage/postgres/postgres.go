package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/microservice-patterns/order-history-service/internal/types/order"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &PostgresStorage{db: db}

	// проверяем, что БД жива
	if err := s.db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	// создаём таблицы
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStorage) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS order_history (
            order_id TEXT PRIMARY KEY,
            consumer_id TEXT NOT NULL,
            status TEXT NOT NULL,
            restaurant_name TEXT NOT NULL,
            line_items JSONB NOT NULL,
            search_keywords TEXT[] NOT NULL,
            applied_events JSONB NOT NULL DEFAULT '{}'::jsonb,
            creation_date TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_order_history_consumer
            ON order_history (consumer_id, creation_date DESC, order_id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_order_history_keywords
            ON order_history USING GIN (search_keywords)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

// InsertOrder creates the projection for a new order. A conflicting order_id
// means the creation event was already applied; the insert is skipped and
// false is returned.
func (s *PostgresStorage) InsertOrder(ctx context.Context, o *order.Order, source order.SourceEvent) (bool, error) {
	items, err := json.Marshal(o.LineItems)
	if err != nil {
		return false, fmt.Errorf("marshal line items: %w", err)
	}
	const q = `
        INSERT INTO order_history
            (order_id, consumer_id, status, restaurant_name, line_items,
             search_keywords, applied_events, creation_date)
        VALUES ($1,$2,$3,$4,$5,$6,jsonb_build_object($7::text, $8::text),$9)
        ON CONFLICT (order_id) DO NOTHING`
	keywords := order.Keywords(o.RestaurantName, o.LineItems)
	if keywords == nil {
		keywords = []string{}
	}
	res, err := s.db.ExecContext(ctx, q,
		o.OrderID, o.ConsumerID, o.Status, o.RestaurantName, items,
		keywords, source.Key(), source.EventID, o.CreationDate,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CancelOrder marks the order CANCELLED. The guard rejects the write when the
// order is missing, already cancelled, or the event is not newer than the
// stored marker for the same origin entity.
func (s *PostgresStorage) CancelOrder(ctx context.Context, orderID string, source order.SourceEvent) (bool, error) {
	const q = `
        UPDATE order_history
        SET status = $1,
            applied_events = applied_events || jsonb_build_object($3::text, $4::text)
        WHERE order_id = $2
          AND status <> $1
          AND COALESCE(applied_events->>$3, '') < $4`
	res, err := s.db.ExecContext(ctx, q, order.StatusCancelled, orderID, source.Key(), source.EventID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresStorage) UpdateOrderStatus(ctx context.Context, orderID string, status order.OrderStatus, source order.SourceEvent) (bool, error) {
	const q = `
        UPDATE order_history
        SET status = $2,
            applied_events = applied_events || jsonb_build_object($3::text, $4::text)
        WHERE order_id = $1
          AND status <> $5
          AND COALESCE(applied_events->>$3, '') < $4`
	res, err := s.db.ExecContext(ctx, q, orderID, status, source.Key(), source.EventID, order.StatusCancelled)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateLineItems replaces the line items and rebuilds the keyword set in the
// same statement, so the projection and its searchable text never diverge.
func (s *PostgresStorage) UpdateLineItems(ctx context.Context, orderID string, items []order.LineItem, source order.SourceEvent) (bool, error) {
	body, err := json.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("marshal line items: %w", err)
	}
	const q = `
        UPDATE order_history
        SET line_items = $2,
            search_keywords = $3::text[]
                || string_to_array(lower(restaurant_name), ' ')
                || ARRAY[lower(restaurant_name)],
            applied_events = applied_events || jsonb_build_object($4::text, $5::text)
        WHERE order_id = $1
          AND status <> $6
          AND COALESCE(applied_events->>$4, '') < $5`
	itemKeywords := order.Keywords("", items)
	if itemKeywords == nil {
		itemKeywords = []string{}
	}
	res, err := s.db.ExecContext(ctx, q, orderID, body, itemKeywords, source.Key(), source.EventID, order.StatusCancelled)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresStorage) FindOrderByID(ctx context.Context, orderID string) (*order.Order, error) {
	const q = `
        SELECT order_id, consumer_id, status, restaurant_name, line_items, creation_date
        FROM order_history WHERE order_id = $1`
	var o order.Order
	var items []byte
	err := s.db.QueryRowContext(ctx, q, orderID).
		Scan(&o.OrderID, &o.ConsumerID, &o.Status, &o.RestaurantName, &items, &o.CreationDate)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.LineItems); err != nil {
		return nil, fmt.Errorf("unmarshal line items: %w", err)
	}
	return &o, nil
}

// ListOrdersByConsumer range-scans the consumer index in recency order.
// When q.Limit is set it fetches one extra row to learn whether results
// remain beyond the page.
func (s *PostgresStorage) ListOrdersByConsumer(ctx context.Context, consumerID string, q *order.ListQuery) ([]order.Order, bool, error) {
	query, args := listOrdersQuery(consumerID, q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		var o order.Order
		var items []byte
		if err := rows.Scan(&o.OrderID, &o.ConsumerID, &o.Status, &o.RestaurantName, &items, &o.CreationDate); err != nil {
			return nil, false, err
		}
		if err := json.Unmarshal(items, &o.LineItems); err != nil {
			return nil, false, fmt.Errorf("unmarshal line items: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	more := false
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
		more = true
	}
	return out, more, nil
}

func listOrdersQuery(consumerID string, q *order.ListQuery) (string, []any) {
	var b strings.Builder
	b.WriteString(`
        SELECT order_id, consumer_id, status, restaurant_name, line_items, creation_date
        FROM order_history
        WHERE consumer_id = $1`)
	args := []any{consumerID}

	if q.Status != "" {
		args = append(args, q.Status)
		fmt.Fprintf(&b, " AND status = $%d", len(args))
	}
	if len(q.Keywords) > 0 {
		lowered := make([]string, len(q.Keywords))
		for i, kw := range q.Keywords {
			lowered[i] = strings.ToLower(kw)
		}
		args = append(args, lowered)
		fmt.Fprintf(&b, " AND search_keywords && $%d::text[]", len(args))
	}
	if q.After != nil {
		args = append(args, q.After.CreationDate, q.After.OrderID)
		fmt.Fprintf(&b, " AND (creation_date, order_id) < ($%d, $%d)", len(args)-1, len(args))
	}
	b.WriteString(" ORDER BY creation_date DESC, order_id DESC")
	if q.Limit > 0 {
		args = append(args, q.Limit+1)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}
