// Package api serves the dishes and orders resources over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gootel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"grubdash/pkg/dish"
	dishmem "grubdash/pkg/dish/memory"
	"grubdash/pkg/events"
	"grubdash/pkg/logger"
	"grubdash/pkg/metrics"
	"grubdash/pkg/nextid"
	"grubdash/pkg/order"
	ordermem "grubdash/pkg/order/memory"
	"grubdash/pkg/web"
)

// maxIDAttempts bounds how often create asks for a new id after a collision.
const maxIDAttempts = 3

// Check reports whether a backing service is reachable.
type Check func(ctx context.Context) error

// Deps are the collaborators of a Handler. Nil fields fall back to in-memory
// storage, random ids, no events, no metrics and a silent logger.
type Deps struct {
	Dishes  dish.Repository
	Orders  order.Repository
	IDs     nextid.Generator
	Events  events.Publisher
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
	Logger  *logger.Logger
	Checks  map[string]Check
}

type Handler struct {
	dishes  dish.Repository
	orders  order.Repository
	ids     nextid.Generator
	events  events.Publisher
	metrics *metrics.Metrics
	tracer  trace.Tracer
	log     *logger.Logger
	checks  map[string]Check
}

func NewHandler(deps Deps) *Handler {
	h := &Handler{
		dishes:  deps.Dishes,
		orders:  deps.Orders,
		ids:     deps.IDs,
		events:  deps.Events,
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
		log:     deps.Logger,
		checks:  deps.Checks,
	}
	if h.dishes == nil {
		h.dishes = dishmem.New()
	}
	if h.orders == nil {
		h.orders = ordermem.New()
	}
	if h.ids == nil {
		h.ids = nextid.Random{}
	}
	if h.events == nil {
		h.events = events.Noop{}
	}
	if h.tracer == nil {
		h.tracer = gootel.Tracer("grubdash")
	}
	if h.log == nil {
		h.log = logger.NewNop()
	}
	return h
}

// respondError is the pipeline error writer. Client errors are logged at debug
// level; anything else is a 500 and gets recorded on the span.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	var webErr *web.Error
	if errors.As(err, &webErr) {
		h.log.Debug(ctx, "request rejected", "method", r.Method, "path", r.URL.Path, "status", webErr.Status, "reason", webErr.Message)
	} else {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.log.Error(ctx, "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	web.RespondError(w, err)
}

// withFreshID calls insert with generated ids until one does not collide.
func (h *Handler) withFreshID(ctx context.Context, conflict error, insert func(id string) error) error {
	for range maxIDAttempts {
		id, err := h.ids.Next(ctx)
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		err = insert(id)
		if !errors.Is(err, conflict) {
			return err
		}
		h.log.Warn(ctx, "generated id already taken", "id", id)
	}
	return fmt.Errorf("no free id after %d attempts", maxIDAttempts)
}

// publish emits an order event. Failures are logged and never reach the client.
func (h *Handler) publish(ctx context.Context, t events.Type, o order.Order) {
	h.metrics.OrderEvent(string(t))
	if err := h.events.Publish(ctx, events.New(t, o)); err != nil {
		h.log.Warn(ctx, "publish order event", "event", string(t), "order_id", o.ID, "error", err)
	}
}

type ctxKey int

const (
	dishKey ctxKey = iota
	dishPayloadKey
	orderKey
	orderPayloadKey
)

func with(r *http.Request, key ctxKey, v any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), key, v))
}

func dishFrom(ctx context.Context) dish.Dish {
	d, _ := ctx.Value(dishKey).(dish.Dish)
	return d
}

func dishPayloadFrom(ctx context.Context) *dishPayload {
	p, _ := ctx.Value(dishPayloadKey).(*dishPayload)
	if p == nil {
		return &dishPayload{}
	}
	return p
}

func orderFrom(ctx context.Context) order.Order {
	o, _ := ctx.Value(orderKey).(order.Order)
	return o
}

func orderPayloadFrom(ctx context.Context) *orderPayload {
	p, _ := ctx.Value(orderPayloadKey).(*orderPayload)
	if p == nil {
		return &orderPayload{}
	}
	return p
}
