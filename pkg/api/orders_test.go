package api

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"grubdash/pkg/events"
	"grubdash/pkg/order"
	"grubdash/pkg/web"
)

const validOrder = `{"data":{"deliverTo":"Rick Sanchez (C-137)","mobileNumber":"(202) 456-1111","dishes":[{"id":"d1","name":"Dolcelatte and chickpea spaghetti","price":19,"quantity":2}]}}`

func TestListOrders(t *testing.T) {
	f := newFixture(t)

	rec, out := f.do(t, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, out["data"], 3)

	_, out = f.do(t, http.MethodGet, "/orders?id=delivered", "")
	data := out["data"].([]any)
	require.Len(t, data, 1)
	require.Equal(t, "delivered", data[0].(map[string]any)["status"])
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	rec, out := f.do(t, http.MethodPost, "/orders", validOrder)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data := out["data"].(map[string]any)
	id, _ := data["id"].(string)
	require.NotEmpty(t, id)
	require.Equal(t, "pending", data["status"])
	require.Equal(t, "Rick Sanchez (C-137)", data["deliverTo"])

	got, err := f.orders.Get(t.Context(), id)
	require.NoError(t, err)
	require.Equal(t, []order.LineItem{{ID: "d1", Name: "Dolcelatte and chickpea spaghetti", Price: 19, Quantity: 2}}, got.Dishes)

	require.Equal(t, []events.Type{events.OrderCreated}, f.events.types())
	require.Equal(t, id, f.events.events[0].Order.ID)
}

func TestCreateOrderStatus(t *testing.T) {
	f := newFixture(t)

	rec, out := f.do(t, http.MethodPost, "/orders",
		`{"data":{"deliverTo":"a","mobileNumber":"b","status":"preparing","dishes":[{"quantity":1}]}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "preparing", out["data"].(map[string]any)["status"])

	requireError(t, f, http.MethodPost, "/orders",
		`{"data":{"deliverTo":"a","mobileNumber":"b","status":"lost","dishes":[{"quantity":1}]}}`,
		http.StatusBadRequest, statusMessage)
}

func TestCreateOrderValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no body", ``, "Order must include a deliverTo"},
		{"missing deliverTo", `{"data":{"mobileNumber":"b","dishes":[{"quantity":1}]}}`, "Order must include a deliverTo"},
		{"empty deliverTo", `{"data":{"deliverTo":"","mobileNumber":"b","dishes":[{"quantity":1}]}}`, "Order must include a deliverTo"},
		{"missing mobileNumber", `{"data":{"deliverTo":"a","dishes":[{"quantity":1}]}}`, "Order must include a mobileNumber"},
		{"empty mobileNumber", `{"data":{"deliverTo":"a","mobileNumber":"","dishes":[{"quantity":1}]}}`, "Order must include a mobileNumber"},
		{"missing dishes", `{"data":{"deliverTo":"a","mobileNumber":"b"}}`, "Order must include a dish"},
		{"null dishes", `{"data":{"deliverTo":"a","mobileNumber":"b","dishes":null}}`, "Order must include a dish"},
		{"empty dishes", `{"data":{"deliverTo":"a","mobileNumber":"b","dishes":[]}}`, "Order must include at least one dish"},
		{"dishes not a list", `{"data":{"deliverTo":"a","mobileNumber":"b","dishes":"d1"}}`, "Order must include at least one dish"},
		{"missing quantity", `{"data":{"deliverTo":"a","mobileNumber":"b","dishes":[{"id":"d1"}]}}`, "Dish 0 must have a quantity that is an integer greater than 0"},
		{"zero quantity", `{"data":{"deliverTo":"a","mobileNumber":"b","dishes":[{"quantity":0}]}}`, "Dish 0 must have a quantity that is an integer greater than 0"},
		{"string quantity", `{"data":{"deliverTo":"a","mobileNumber":"b","dishes":[{"quantity":"2"}]}}`, "Dish 0 must have a quantity that is an integer greater than 0"},
		{"fractional quantity", `{"data":{"deliverTo":"a","mobileNumber":"b","dishes":[{"quantity":1.5}]}}`, "Dish 0 must have a quantity that is an integer greater than 0"},
		{"line item not an object", `{"data":{"deliverTo":"a","mobileNumber":"b","dishes":[7]}}`, "Dish 0 must have a quantity that is an integer greater than 0"},
		{"first bad index reported", `{"data":{"deliverTo":"a","mobileNumber":"b","dishes":[{"quantity":1},{"quantity":-2},{"quantity":0}]}}`, "Dish 1 must have a quantity that is an integer greater than 0"},
		{"fields checked before dishes", `{"data":{"dishes":[]}}`, "Order must include a deliverTo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			requireError(t, f, http.MethodPost, "/orders", tt.body, http.StatusBadRequest, tt.want)

			list, err := f.orders.List(t.Context())
			require.NoError(t, err)
			require.Len(t, list, 3)
			require.Empty(t, f.events.types())
		})
	}
}

func TestReadOrder(t *testing.T) {
	f := newFixture(t)

	rec, out := f.do(t, http.MethodGet, "/orders/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := out["data"].(map[string]any)
	require.Equal(t, "308 Negra Arroyo Lane", data["deliverTo"])
	require.Len(t, data["dishes"], 1)

	requireError(t, f, http.MethodGet, "/orders/missing", "", http.StatusNotFound, "Order id not found: missing")
}

func TestUpdateOrder(t *testing.T) {
	f := newFixture(t)

	rec, out := f.do(t, http.MethodPut, "/orders/pending",
		`{"data":{"id":"pending","deliverTo":"New address","mobileNumber":"555","status":"out-for-delivery","dishes":[{"quantity":9}]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := out["data"].(map[string]any)
	require.Equal(t, "pending", data["id"])
	require.Equal(t, "out-for-delivery", data["status"])

	got, err := f.orders.Get(t.Context(), "pending")
	require.NoError(t, err)
	require.Equal(t, "New address", got.DeliverTo)
	require.Equal(t, "555", got.MobileNumber)
	require.Equal(t, order.StatusOutForDelivery, got.Status)
	// Line items are not replaced by an update.
	require.Equal(t, 2, got.Dishes[0].Quantity)

	require.Equal(t, []events.Type{events.OrderUpdated}, f.events.types())
}

func TestUpdateOrderAllowsMovingBackwards(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodPut, "/orders/preparing",
		`{"data":{"deliverTo":"a","mobileNumber":"b","status":"pending","dishes":[{"quantity":1}]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateOrderGuards(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		want   string
	}{
		{
			name:   "unknown order",
			path:   "/orders/missing",
			body:   validOrder,
			status: http.StatusNotFound,
			want:   "Order id not found: missing",
		},
		{
			name:   "id mismatch",
			path:   "/orders/pending",
			body:   `{"data":{"id":"preparing","deliverTo":"a","mobileNumber":"b","status":"pending","dishes":[{"quantity":1}]}}`,
			status: http.StatusBadRequest,
			want:   "Order id does not match route id. Order: preparing, Route: pending",
		},
		{
			name:   "delivered order",
			path:   "/orders/delivered",
			body:   `{"data":{"deliverTo":"a","mobileNumber":"b","status":"pending","dishes":[{"quantity":1}]}}`,
			status: http.StatusBadRequest,
			want:   "A delivered order cannot be changed",
		},
		{
			name:   "delivered order reported before a missing status",
			path:   "/orders/delivered",
			body:   `{"data":{}}`,
			status: http.StatusBadRequest,
			want:   "A delivered order cannot be changed",
		},
		{
			name:   "delivered order with a malformed body",
			path:   "/orders/delivered",
			body:   `{"data":`,
			status: http.StatusBadRequest,
			want:   "A delivered order cannot be changed",
		},
		{
			name:   "delivered order with an oversized body",
			path:   "/orders/delivered",
			body:   `{"data":{"deliverTo":"` + strings.Repeat("x", web.MaxBodyBytes) + `"}}`,
			status: http.StatusBadRequest,
			want:   "A delivered order cannot be changed",
		},
		{
			name:   "oversized body on an open order",
			path:   "/orders/pending",
			body:   `{"data":{"deliverTo":"` + strings.Repeat("x", web.MaxBodyBytes) + `"}}`,
			status: http.StatusRequestEntityTooLarge,
			want:   "Request body is too large",
		},
		{
			name:   "missing status",
			path:   "/orders/pending",
			body:   `{"data":{"deliverTo":"a","mobileNumber":"b","dishes":[{"quantity":1}]}}`,
			status: http.StatusBadRequest,
			want:   statusMessage,
		},
		{
			name:   "unknown status",
			path:   "/orders/pending",
			body:   `{"data":{"deliverTo":"a","mobileNumber":"b","status":"invalid","dishes":[{"quantity":1}]}}`,
			status: http.StatusBadRequest,
			want:   statusMessage,
		},
		{
			name:   "status checked before fields",
			path:   "/orders/pending",
			body:   `{"data":{"status":"invalid"}}`,
			status: http.StatusBadRequest,
			want:   statusMessage,
		},
		{
			name:   "invalid fields",
			path:   "/orders/pending",
			body:   `{"data":{"mobileNumber":"b","status":"preparing","dishes":[{"quantity":1}]}}`,
			status: http.StatusBadRequest,
			want:   "Order must include a deliverTo",
		},
		{
			name:   "dishes still required",
			path:   "/orders/pending",
			body:   `{"data":{"deliverTo":"a","mobileNumber":"b","status":"preparing"}}`,
			status: http.StatusBadRequest,
			want:   "Order must include a dish",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			requireError(t, f, http.MethodPut, tt.path, tt.body, tt.status, tt.want)

			got, err := f.orders.Get(t.Context(), "pending")
			require.NoError(t, err)
			require.Equal(t, order.StatusPending, got.Status)

			delivered, err := f.orders.Get(t.Context(), "delivered")
			require.NoError(t, err)
			require.Equal(t, order.StatusDelivered, delivered.Status)
			require.Equal(t, "221B Baker Street", delivered.DeliverTo)
			require.Equal(t, "(020) 7224-3688", delivered.MobileNumber)
			require.Empty(t, f.events.types())
		})
	}
}

func TestDestroyOrder(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodDelete, "/orders/pending", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Zero(t, rec.Body.Len())

	requireError(t, f, http.MethodGet, "/orders/pending", "", http.StatusNotFound, "Order id not found: pending")
	require.Equal(t, []events.Type{events.OrderDeleted}, f.events.types())
	require.Equal(t, "pending", f.events.events[0].Order.ID)
}

func TestDestroyOrderGuards(t *testing.T) {
	f := newFixture(t)

	requireError(t, f, http.MethodDelete, "/orders/missing", "", http.StatusNotFound, "Order id not found: missing")
	for _, id := range []string{"preparing", "delivered"} {
		requireError(t, f, http.MethodDelete, "/orders/"+id, "", http.StatusBadRequest, "An order cannot be deleted unless it is pending")
	}

	list, err := f.orders.List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Empty(t, f.events.types())
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("channel closed")

	rec, _ := f.do(t, http.MethodPost, "/orders", validOrder)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, []events.Type{events.OrderCreated}, f.events.types())
}

func TestCreateOrderRetriesTakenID(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.IDs = &scriptedIDs{ids: []string{"pending", "next"}} })

	rec, out := f.do(t, http.MethodPost, "/orders", validOrder)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "next", out["data"].(map[string]any)["id"])
}
