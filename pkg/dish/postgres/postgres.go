// Package postgres stores dishes in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"grubdash/pkg/dish"
	"grubdash/pkg/sqldb"
)

const schema = `CREATE TABLE IF NOT EXISTS dishes (
	position    BIGSERIAL,
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL,
	price       INTEGER NOT NULL,
	image_url   TEXT NOT NULL
)`

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the dishes table when it is missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create dishes table: %w", err)
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, d dish.Dish) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO dishes (id,name,description,price,image_url) VALUES ($1,$2,$3,$4,$5)",
		d.ID, d.Name, d.Description, d.Price, d.ImageURL)
	if sqldb.IsUniqueViolation(err) {
		return dish.ErrConflict
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (dish.Dish, error) {
	var d dish.Dish
	err := r.db.QueryRowContext(ctx, "SELECT id,name,description,price,image_url FROM dishes WHERE id=$1", id).
		Scan(&d.ID, &d.Name, &d.Description, &d.Price, &d.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return dish.Dish{}, dish.ErrNotFound
	}
	return d, err
}

func (r *Repository) List(ctx context.Context) ([]dish.Dish, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id,name,description,price,image_url FROM dishes ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	dishes := []dish.Dish{}
	for rows.Next() {
		var d dish.Dish
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Price, &d.ImageURL); err != nil {
			return nil, err
		}
		dishes = append(dishes, d)
	}
	return dishes, rows.Err()
}

func (r *Repository) Update(ctx context.Context, d dish.Dish) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE dishes SET name=$2, description=$3, price=$4, image_url=$5 WHERE id=$1",
		d.ID, d.Name, d.Description, d.Price, d.ImageURL)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return dish.ErrNotFound
	}
	return nil
}
