package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"grubdash/pkg/web"
)

const checkTimeout = 2 * time.Second

// NewRouter mounts the resource routes together with health, metrics and
// swagger endpoints. gatherer backs /metrics; nil means the default registry.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *mux.Router {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := mux.NewRouter()
	// mux does not run r.Use middleware for unmatched requests.
	r.NotFoundHandler = h.instrument(http.HandlerFunc(notFound))
	r.MethodNotAllowedHandler = h.instrument(http.HandlerFunc(methodNotAllowed))
	r.Use(h.recoverPanics, h.traceRequests, h.logRequests)

	pipe := func(terminal web.Handler, guards ...web.Guard) http.HandlerFunc {
		return web.Pipeline(h.respondError, terminal, guards...)
	}

	// Collection paths are registered on r so a wrong method answers 405.
	r.HandleFunc("/dishes", pipe(h.listDishes)).Methods(http.MethodGet)
	r.HandleFunc("/dishes", pipe(h.createDish, h.decodeDish, h.validateDishInput)).Methods(http.MethodPost)
	r.HandleFunc("/orders", pipe(h.listOrders)).Methods(http.MethodGet)
	r.HandleFunc("/orders", pipe(h.createOrder, h.decodeOrder, h.validateOrderInput)).Methods(http.MethodPost)

	dishes := r.PathPrefix("/dishes").Subrouter()
	dishes.HandleFunc("/{dishId}", pipe(h.readDish, h.dishExists)).Methods(http.MethodGet)
	dishes.HandleFunc("/{dishId}", pipe(h.updateDish,
		h.dishExists, h.decodeDish, h.dishInBodyMatchesRoute, h.validateDishInput,
	)).Methods(http.MethodPut)

	orders := r.PathPrefix("/orders").Subrouter()
	orders.HandleFunc("/{orderId}", pipe(h.readOrder, h.orderExists)).Methods(http.MethodGet)
	orders.HandleFunc("/{orderId}", pipe(h.updateOrder,
		h.orderExists, h.decodeOrderChange, h.orderInBodyMatchesRoute, h.statusIsSupported, h.validateOrderInput,
	)).Methods(http.MethodPut)
	orders.HandleFunc("/{orderId}", pipe(h.destroyOrder, h.orderExists, h.statusIsNotPending)).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/livez", livez).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	return r
}

func notFound(w http.ResponseWriter, r *http.Request) {
	web.RespondError(w, web.NotFound("Path not found: %s", r.URL.Path))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	web.RespondError(w, &web.Error{
		Status:  http.StatusMethodNotAllowed,
		Message: r.Method + " not allowed for " + r.URL.Path,
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthz runs every dependency check. Any failure turns the response into a 503.
// @Summary Readiness
// @Tags health
// @Produce json
// @Success 200 {object} healthResponse
// @Failure 503 {object} healthResponse
// @Router /healthz [get]
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			h.log.Warn(r.Context(), "health check failed", "check", name, "error", err)
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	web.Respond(w, code, resp)
}

func livez(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
