package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"grubdash/pkg/order"
	"grubdash/pkg/sqldb"
)

const schema = `CREATE TABLE IF NOT EXISTS orders (
	position      BIGSERIAL,
	id            TEXT PRIMARY KEY,
	deliver_to    TEXT NOT NULL,
	mobile_number TEXT NOT NULL,
	status        TEXT NOT NULL,
	dishes        JSONB NOT NULL
)`

// Repository persists orders in PostgreSQL. Line items are stored as JSONB.
type Repository struct {
	db *sql.DB
}

// New creates a PostgreSQL repository.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the orders table when it is missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}
	return nil
}

// Create inserts a new order.
func (r *Repository) Create(ctx context.Context, o order.Order) error {
	dishes, err := json.Marshal(o.Dishes)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO orders (id,deliver_to,mobile_number,status,dishes) VALUES ($1,$2,$3,$4,$5)",
		o.ID, o.DeliverTo, o.MobileNumber, string(o.Status), string(dishes))
	if sqldb.IsUniqueViolation(err) {
		return order.ErrConflict
	}
	return err
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id,deliver_to,mobile_number,status,dishes FROM orders WHERE id=$1", id)
	o, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, order.ErrNotFound
	}
	return o, err
}

// List fetches all orders.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id,deliver_to,mobile_number,status,dishes FROM orders ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []order.Order{}
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Update updates an existing order.
func (r *Repository) Update(ctx context.Context, o order.Order) error {
	dishes, err := json.Marshal(o.Dishes)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET deliver_to=$2, mobile_number=$3, status=$4, dishes=$5 WHERE id=$1",
		o.ID, o.DeliverTo, o.MobileNumber, string(o.Status), string(dishes))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Delete removes an order by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM orders WHERE id=$1", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return order.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (order.Order, error) {
	var (
		o      order.Order
		status string
		dishes []byte
	)
	if err := s.Scan(&o.ID, &o.DeliverTo, &o.MobileNumber, &status, &dishes); err != nil {
		return order.Order{}, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(dishes, &o.Dishes); err != nil {
		return order.Order{}, fmt.Errorf("decode line items of order %s: %w", o.ID, err)
	}
	return o, nil
}
