// Package dish defines the dishes offered for ordering.
package dish

import (
	"context"
	"errors"
)

// Dish is a menu entry. Price is in whole currency units.
type Dish struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	ImageURL    string `json:"image_url"`
}

// Repository defines behavior for persisting dishes. Dishes are never
// deleted. List returns dishes in insertion order.
type Repository interface {
	Create(ctx context.Context, d Dish) error
	Get(ctx context.Context, id string) (Dish, error)
	List(ctx context.Context) ([]Dish, error)
	Update(ctx context.Context, d Dish) error
}

var (
	// ErrNotFound indicates the requested dish does not exist.
	ErrNotFound = errors.New("dish not found")
	// ErrConflict indicates a dish with the same id is already stored.
	ErrConflict = errors.New("dish id already exists")
)
