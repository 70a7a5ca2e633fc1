package order

import (
	"context"
	"errors"
)

// Status is the delivery state of an order.
type Status string

const (
	StatusPending        Status = "pending"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out-for-delivery"
	StatusDelivered      Status = "delivered"
)

// Statuses lists every supported status in workflow order.
var Statuses = []Status{StatusPending, StatusPreparing, StatusOutForDelivery, StatusDelivered}

// Valid reports whether s is one of Statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// CanChange reports whether an order in status s may still be updated.
// Any supported status may follow any other until the order is delivered.
func (s Status) CanChange() bool {
	return s != StatusDelivered
}

// CanDelete reports whether an order in status s may be removed.
func (s Status) CanDelete() bool {
	return s == StatusPending
}

// LineItem is one dish in an order. The dish fields are a snapshot taken when
// the order was placed.
type LineItem struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Price       int    `json:"price,omitempty"`
	Quantity    int    `json:"quantity"`
}

// Order represents a customer delivery order.
type Order struct {
	ID           string     `json:"id"`
	DeliverTo    string     `json:"deliverTo"`
	MobileNumber string     `json:"mobileNumber"`
	Status       Status     `json:"status"`
	Dishes       []LineItem `json:"dishes"`
}

// Repository defines behavior for persisting orders. List returns orders in
// insertion order.
type Repository interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context) ([]Order, error)
	Update(ctx context.Context, o Order) error
	Delete(ctx context.Context, id string) error
}

var (
	// ErrNotFound indicates the requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrConflict indicates an order with the same id is already stored.
	ErrConflict = errors.New("order id already exists")
)
