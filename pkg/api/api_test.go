package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"grubdash/pkg/dish"
	dishmem "grubdash/pkg/dish/memory"
	"grubdash/pkg/events"
	"grubdash/pkg/metrics"
	"grubdash/pkg/nextid"
	"grubdash/pkg/order"
	ordermem "grubdash/pkg/order/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Type
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// scriptedIDs hands out ids in order, then falls back to random ones.
type scriptedIDs struct {
	ids []string
}

func (s *scriptedIDs) Next(ctx context.Context) (string, error) {
	if len(s.ids) == 0 {
		return nextid.Random{}.Next(ctx)
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id, nil
}

type fixture struct {
	dishes   *dishmem.Repository
	orders   *ordermem.Repository
	events   *recordingPublisher
	registry *prometheus.Registry
	router   http.Handler
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		dishes:   dishmem.New(),
		orders:   ordermem.New(),
		events:   &recordingPublisher{},
		registry: prometheus.NewRegistry(),
	}
	require.NoError(t, f.dishes.Create(ctx, dish.Dish{
		ID: "d1", Name: "Dolcelatte and chickpea spaghetti", Description: "Spaghetti topped with a blend of dolcelatte and fresh chickpeas",
		Price: 19, ImageURL: "https://images.example.com/spaghetti.jpg",
	}))
	require.NoError(t, f.dishes.Create(ctx, dish.Dish{
		ID: "d2", Name: "Falafel and tahini bagel", Description: "A warm bagel filled with falafel and tahini",
		Price: 6, ImageURL: "https://images.example.com/bagel.jpg",
	}))
	for _, o := range []order.Order{
		{ID: "pending", DeliverTo: "308 Negra Arroyo Lane", MobileNumber: "(505) 143-3369", Status: order.StatusPending,
			Dishes: []order.LineItem{{ID: "d1", Name: "Dolcelatte and chickpea spaghetti", Price: 19, Quantity: 2}}},
		{ID: "preparing", DeliverTo: "1600 Pennsylvania Avenue", MobileNumber: "(202) 456-1111", Status: order.StatusPreparing,
			Dishes: []order.LineItem{{ID: "d2", Quantity: 1}}},
		{ID: "delivered", DeliverTo: "221B Baker Street", MobileNumber: "(020) 7224-3688", Status: order.StatusDelivered,
			Dishes: []order.LineItem{{ID: "d2", Quantity: 3}}},
	} {
		require.NoError(t, f.orders.Create(ctx, o))
	}

	deps := Deps{
		Dishes:  f.dishes,
		Orders:  f.orders,
		Events:  f.events,
		Metrics: metrics.New(f.registry),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.router = NewRouter(NewHandler(deps), f.registry)
	return f
}

// do sends a request and decodes the JSON response body, if any.
func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func requireError(t *testing.T, f *fixture, method, path, body string, status int, message string) {
	t.Helper()
	rec, out := f.do(t, method, path, body)
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, message, out["error"])
}

type failingDishes struct {
	dish.Repository
}

func (failingDishes) List(context.Context) ([]dish.Dish, error) {
	return nil, errors.New("connection reset by peer")
}
