// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the API collectors. A nil *Metrics records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	dishesCreated prometheus.Counter
	orderEvents   *prometheus.CounterVec
}

// New registers the collectors on registerer, reusing collectors that are
// already registered under the same name.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		requests: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grubdash_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"method", "route", "code"})),
		duration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grubdash_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"method", "route"})),
		dishesCreated: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grubdash_dishes_created_total",
			Help: "Total number of dishes created",
		})),
		orderEvents: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grubdash_orders_total",
			Help: "Total number of order lifecycle changes by event",
		}, []string{"event"})),
	}
}

func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(T)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", alreadyRegistered.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) DishCreated() {
	if m == nil {
		return
	}
	m.dishesCreated.Inc()
}

// OrderEvent counts an order create/update/delete.
func (m *Metrics) OrderEvent(event string) {
	if m == nil {
		return
	}
	m.orderEvents.WithLabelValues(event).Inc()
}
