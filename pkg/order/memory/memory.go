// Package memory implements an in-memory order repository.
package memory

import (
	"context"
	"slices"
	"sync"

	"grubdash/pkg/order"
)

// Repository provides an in-memory implementation of order.Repository.
// Records are kept in insertion order and copied on the way in and out.
type Repository struct {
	mu     sync.RWMutex
	orders []order.Order
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{}
}

// Create stores the order.
func (r *Repository) Create(ctx context.Context, o order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(o.ID) >= 0 {
		return order.ErrConflict
	}
	r.orders = append(r.orders, clone(o))
	return nil
}

// Get retrieves an order by ID.
func (r *Repository) Get(ctx context.Context, id string) (order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexOf(id)
	if i < 0 {
		return order.Order{}, order.ErrNotFound
	}
	return clone(r.orders[i]), nil
}

// List returns all orders.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, clone(o))
	}
	return out, nil
}

// Update replaces an existing order.
func (r *Repository) Update(ctx context.Context, o order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(o.ID)
	if i < 0 {
		return order.ErrNotFound
	}
	r.orders[i] = clone(o)
	return nil
}

// Delete removes an order by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(id)
	if i < 0 {
		return order.ErrNotFound
	}
	r.orders = slices.Delete(r.orders, i, i+1)
	return nil
}

func (r *Repository) indexOf(id string) int {
	return slices.IndexFunc(r.orders, func(o order.Order) bool { return o.ID == id })
}

func clone(o order.Order) order.Order {
	o.Dishes = slices.Clone(o.Dishes)
	return o
}
