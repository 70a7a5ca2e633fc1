package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"grubdash/pkg/events"
	"grubdash/pkg/order"
	"grubdash/pkg/otel"
	"grubdash/pkg/web"
)

type orderRequest struct {
	Data order.Order `json:"data"`
}

type orderResponse struct {
	Data order.Order `json:"data"`
}

type orderListResponse struct {
	Data []order.Order `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// listOrders returns every order.
// @Summary List orders
// @Tags orders
// @Produce json
// @Param id query string false "Only return the order with this id"
// @Success 200 {object} orderListResponse
// @Router /orders [get]
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) error {
	ctx, span := otel.AddSpan(r.Context(), "api.listOrders")
	defer span.End()

	orders, err := h.orders.List(ctx)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}
	if id := r.URL.Query().Get("id"); id != "" {
		orders = slices.DeleteFunc(orders, func(o order.Order) bool { return o.ID != id })
	}
	if orders == nil {
		orders = []order.Order{}
	}
	web.RespondData(w, http.StatusOK, orders)
	return nil
}

// createOrder stores a new order. Status defaults to pending.
// @Summary Create order
// @Tags orders
// @Accept json
// @Produce json
// @Param order body orderRequest true "Order"
// @Success 201 {object} orderResponse
// @Failure 400 {object} errorResponse
// @Router /orders [post]
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) error {
	ctx, span := otel.AddSpan(r.Context(), "api.createOrder")
	defer span.End()

	p := orderPayloadFrom(ctx)
	status := order.StatusPending
	if p.Status != "" {
		status = order.Status(p.Status)
		if !status.Valid() {
			return web.BadRequest(statusMessage)
		}
	}

	o := order.Order{
		DeliverTo:    p.DeliverTo,
		MobileNumber: p.MobileNumber,
		Status:       status,
		Dishes:       p.items,
	}
	err := h.withFreshID(ctx, order.ErrConflict, func(id string) error {
		o.ID = id
		return h.orders.Create(ctx, o)
	})
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	h.log.Info(ctx, "order created", "order_id", o.ID, "status", string(o.Status))
	h.publish(ctx, events.OrderCreated, o)

	web.RespondData(w, http.StatusCreated, o)
	return nil
}

// readOrder returns one order.
// @Summary Get order
// @Tags orders
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} orderResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{orderId} [get]
func (h *Handler) readOrder(w http.ResponseWriter, r *http.Request) error {
	web.RespondData(w, http.StatusOK, orderFrom(r.Context()))
	return nil
}

// updateOrder changes deliverTo, mobileNumber and status. Line items are kept.
// @Summary Update order
// @Tags orders
// @Accept json
// @Produce json
// @Param orderId path string true "Order ID"
// @Param order body orderRequest true "Order"
// @Success 200 {object} orderResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{orderId} [put]
func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) error {
	ctx, span := otel.AddSpan(r.Context(), "api.updateOrder")
	defer span.End()

	o := orderFrom(ctx)
	p := orderPayloadFrom(ctx)
	o.DeliverTo = p.DeliverTo
	o.MobileNumber = p.MobileNumber
	o.Status = order.Status(p.Status)
	span.SetAttributes(attribute.String("order.id", o.ID))

	if err := h.orders.Update(ctx, o); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return web.NotFound("Order id not found: %s", o.ID)
		}
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	h.log.Info(ctx, "order updated", "order_id", o.ID, "status", string(o.Status))
	h.publish(ctx, events.OrderUpdated, o)

	web.RespondData(w, http.StatusOK, o)
	return nil
}

// destroyOrder removes a pending order.
// @Summary Delete order
// @Tags orders
// @Param orderId path string true "Order ID"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{orderId} [delete]
func (h *Handler) destroyOrder(w http.ResponseWriter, r *http.Request) error {
	ctx, span := otel.AddSpan(r.Context(), "api.destroyOrder")
	defer span.End()

	o := orderFrom(ctx)
	span.SetAttributes(attribute.String("order.id", o.ID))
	if err := h.orders.Delete(ctx, o.ID); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return web.NotFound("Order id not found: %s", o.ID)
		}
		return fmt.Errorf("delete order %s: %w", o.ID, err)
	}
	h.log.Info(ctx, "order deleted", "order_id", o.ID)
	h.publish(ctx, events.OrderDeleted, o)

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// orderExists resolves {orderId} and stores the order on the request context.
func (h *Handler) orderExists(r *http.Request) (*http.Request, error) {
	id := mux.Vars(r)["orderId"]
	o, err := h.orders.Get(r.Context(), id)
	if errors.Is(err, order.ErrNotFound) {
		return nil, web.NotFound("Order id not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return with(r, orderKey, o), nil
}

func (h *Handler) decodeOrder(r *http.Request) (*http.Request, error) {
	p := &orderPayload{}
	if err := web.DecodeData(r, p); err != nil {
		return nil, err
	}
	return with(r, orderPayloadKey, p), nil
}

// decodeOrderChange decodes an update body. When the stored order is already
// delivered, a body that cannot be decoded is reported as the delivered
// failure, so every update of a delivered order answers 400.
func (h *Handler) decodeOrderChange(r *http.Request) (*http.Request, error) {
	next, err := h.decodeOrder(r)
	if err != nil && !orderFrom(r.Context()).Status.CanChange() {
		return nil, web.BadRequest(deliveredMessage)
	}
	return next, err
}

func (h *Handler) orderInBodyMatchesRoute(r *http.Request) (*http.Request, error) {
	routeID := mux.Vars(r)["orderId"]
	if id := orderPayloadFrom(r.Context()).ID; id != "" && id != routeID {
		return nil, web.BadRequest("Order id does not match route id. Order: %s, Route: %s", id, routeID)
	}
	return nil, nil
}

// statusIsSupported blocks changes to delivered orders and requires a known
// target status.
func (h *Handler) statusIsSupported(r *http.Request) (*http.Request, error) {
	ctx := r.Context()
	if !orderFrom(ctx).Status.CanChange() {
		return nil, web.BadRequest(deliveredMessage)
	}
	if !order.Status(orderPayloadFrom(ctx).Status).Valid() {
		return nil, web.BadRequest(statusMessage)
	}
	return nil, nil
}

func (h *Handler) validateOrderInput(r *http.Request) (*http.Request, error) {
	return nil, orderPayloadFrom(r.Context()).validate()
}

func (h *Handler) statusIsNotPending(r *http.Request) (*http.Request, error) {
	if !orderFrom(r.Context()).Status.CanDelete() {
		return nil, web.BadRequest("An order cannot be deleted unless it is pending")
	}
	return nil, nil
}
