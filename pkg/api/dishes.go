package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"grubdash/pkg/dish"
	"grubdash/pkg/otel"
	"grubdash/pkg/web"
)

// dishRequest documents the body accepted by create and update.
type dishRequest struct {
	Data dish.Dish `json:"data"`
}

type dishResponse struct {
	Data dish.Dish `json:"data"`
}

type dishListResponse struct {
	Data []dish.Dish `json:"data"`
}

// listDishes returns every dish.
// @Summary List dishes
// @Tags dishes
// @Produce json
// @Param id query string false "Only return the dish with this id"
// @Success 200 {object} dishListResponse
// @Router /dishes [get]
func (h *Handler) listDishes(w http.ResponseWriter, r *http.Request) error {
	ctx, span := otel.AddSpan(r.Context(), "api.listDishes")
	defer span.End()

	dishes, err := h.dishes.List(ctx)
	if err != nil {
		return fmt.Errorf("list dishes: %w", err)
	}
	if id := r.URL.Query().Get("id"); id != "" {
		dishes = slices.DeleteFunc(dishes, func(d dish.Dish) bool { return d.ID != id })
	}
	if dishes == nil {
		dishes = []dish.Dish{}
	}
	web.RespondData(w, http.StatusOK, dishes)
	return nil
}

// createDish stores a new dish under a generated id.
// @Summary Create dish
// @Tags dishes
// @Accept json
// @Produce json
// @Param dish body dishRequest true "Dish"
// @Success 201 {object} dishResponse
// @Failure 400 {object} errorResponse
// @Router /dishes [post]
func (h *Handler) createDish(w http.ResponseWriter, r *http.Request) error {
	ctx, span := otel.AddSpan(r.Context(), "api.createDish")
	defer span.End()

	var d dish.Dish
	dishPayloadFrom(ctx).apply(&d)
	err := h.withFreshID(ctx, dish.ErrConflict, func(id string) error {
		d.ID = id
		return h.dishes.Create(ctx, d)
	})
	if err != nil {
		return fmt.Errorf("create dish: %w", err)
	}
	span.SetAttributes(attribute.String("dish.id", d.ID))
	h.metrics.DishCreated()
	h.log.Info(ctx, "dish created", "dish_id", d.ID)

	web.RespondData(w, http.StatusCreated, d)
	return nil
}

// readDish returns one dish.
// @Summary Get dish
// @Tags dishes
// @Produce json
// @Param dishId path string true "Dish ID"
// @Success 200 {object} dishResponse
// @Failure 404 {object} errorResponse
// @Router /dishes/{dishId} [get]
func (h *Handler) readDish(w http.ResponseWriter, r *http.Request) error {
	web.RespondData(w, http.StatusOK, dishFrom(r.Context()))
	return nil
}

// updateDish replaces the fields of an existing dish. The id never changes.
// @Summary Update dish
// @Tags dishes
// @Accept json
// @Produce json
// @Param dishId path string true "Dish ID"
// @Param dish body dishRequest true "Dish"
// @Success 200 {object} dishResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /dishes/{dishId} [put]
func (h *Handler) updateDish(w http.ResponseWriter, r *http.Request) error {
	ctx, span := otel.AddSpan(r.Context(), "api.updateDish")
	defer span.End()

	d := dishFrom(ctx)
	dishPayloadFrom(ctx).apply(&d)
	span.SetAttributes(attribute.String("dish.id", d.ID))
	if err := h.dishes.Update(ctx, d); err != nil {
		if errors.Is(err, dish.ErrNotFound) {
			return web.NotFound("Dish does not exist: %s", d.ID)
		}
		return fmt.Errorf("update dish %s: %w", d.ID, err)
	}
	h.log.Info(ctx, "dish updated", "dish_id", d.ID)

	web.RespondData(w, http.StatusOK, d)
	return nil
}

// dishExists resolves {dishId} and stores the dish on the request context.
func (h *Handler) dishExists(r *http.Request) (*http.Request, error) {
	id := mux.Vars(r)["dishId"]
	d, err := h.dishes.Get(r.Context(), id)
	if errors.Is(err, dish.ErrNotFound) {
		return nil, web.NotFound("Dish does not exist: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get dish %s: %w", id, err)
	}
	return with(r, dishKey, d), nil
}

func (h *Handler) decodeDish(r *http.Request) (*http.Request, error) {
	p := &dishPayload{}
	if err := web.DecodeData(r, p); err != nil {
		return nil, err
	}
	return with(r, dishPayloadKey, p), nil
}

// dishInBodyMatchesRoute rejects a body id that names another dish. A missing
// or empty body id is fine.
func (h *Handler) dishInBodyMatchesRoute(r *http.Request) (*http.Request, error) {
	routeID := mux.Vars(r)["dishId"]
	if id := dishPayloadFrom(r.Context()).ID; id != "" && id != routeID {
		return nil, web.BadRequest("Dish id does not match route id. Dish: %s, Route: %s", id, routeID)
	}
	return nil, nil
}

func (h *Handler) validateDishInput(r *http.Request) (*http.Request, error) {
	return nil, dishPayloadFrom(r.Context()).validate()
}
