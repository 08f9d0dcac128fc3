// Package journal persists an append-only audit trail of order activity to
// SQLite. It is diagnostics only: the engine never reads it back to rebuild
// state, which stays in-memory for the lifetime of a session.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS orders (
    client_order_id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    side TEXT NOT NULL,
    qty INTEGER NOT NULL,
    limit_price REAL NOT NULL,
    status TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS order_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    client_order_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    filled_qty INTEGER NOT NULL,
    price REAL NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_order_events_order ON order_events(client_order_id);
`

// Order is an order row in the audit trail.
type Order struct {
	ClientOrderID string
	Symbol        string
	Side          string
	Qty           int64
	LimitPrice    float64
	Status        string
	CreatedAt     time.Time
}

// OrderEvent is a lifecycle event row.
type OrderEvent struct {
	ClientOrderID string
	Kind          string
	FilledQty     int64
	Price         float64
	CreatedAt     time.Time
}

// DB wraps the SQL handle for easier swapping/testing.
type DB struct {
	db *sql.DB
}

// Open opens (and creates if needed) the SQLite journal at path and applies
// the schema.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("journal path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers single writer.
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the underlying handle.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// RecordOrder stores a newly submitted order.
func (d *DB) RecordOrder(ctx context.Context, o Order) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO orders (client_order_id, symbol, side, qty, limit_price, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.ClientOrderID, o.Symbol, o.Side, o.Qty, o.LimitPrice, o.Status)
	return err
}

// RecordEvent appends a lifecycle event and updates the order's status.
func (d *DB) RecordEvent(ctx context.Context, ev OrderEvent) error {
	if _, err := d.db.ExecContext(ctx, `
		INSERT INTO order_events (client_order_id, kind, filled_qty, price)
		VALUES (?, ?, ?, ?)`,
		ev.ClientOrderID, ev.Kind, ev.FilledQty, ev.Price); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE client_order_id = ?`,
		ev.Kind, ev.ClientOrderID)
	return err
}

// RecentOrders lists the newest orders, most recent first.
func (d *DB) RecentOrders(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT client_order_id, symbol, side, qty, limit_price, status, created_at
		FROM orders ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ClientOrderID, &o.Symbol, &o.Side, &o.Qty, &o.LimitPrice, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
