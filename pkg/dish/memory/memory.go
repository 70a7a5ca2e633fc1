// Package memory implements an in-memory dish repository.
package memory

import (
	"context"
	"slices"
	"sync"

	"grubdash/pkg/dish"
)

// Repository provides an in-memory implementation of dish.Repository.
type Repository struct {
	mu     sync.RWMutex
	dishes []dish.Dish
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{}
}

// Create stores the dish.
func (r *Repository) Create(ctx context.Context, d dish.Dish) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(d.ID) >= 0 {
		return dish.ErrConflict
	}
	r.dishes = append(r.dishes, d)
	return nil
}

// Get retrieves a dish by ID.
func (r *Repository) Get(ctx context.Context, id string) (dish.Dish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return dish.Dish{}, dish.ErrNotFound
	}
	return r.dishes[i], nil
}

// List returns all dishes.
func (r *Repository) List(ctx context.Context) ([]dish.Dish, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.dishes), nil
}

// Update replaces an existing dish.
func (r *Repository) Update(ctx context.Context, d dish.Dish) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(d.ID)
	if i < 0 {
		return dish.ErrNotFound
	}
	r.dishes[i] = d
	return nil
}

func (r *Repository) indexOf(id string) int {
	return slices.IndexFunc(r.dishes, func(d dish.Dish) bool { return d.ID == id })
}
