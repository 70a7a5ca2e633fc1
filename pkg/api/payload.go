package api

import (
	"bytes"
	"encoding/json"
	"math"

	"grubdash/pkg/dish"
	"grubdash/pkg/order"
	"grubdash/pkg/web"
)

const (
	statusMessage    = "Order must have a status of pending, preparing, out-for-delivery, delivered"
	deliveredMessage = "A delivered order cannot be changed"
)

// dishPayload is the "data" member of a dish create/update body. Price stays
// raw so that a missing price, a string and a fraction can be told apart.
type dishPayload struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       json.RawMessage `json:"price"`
	ImageURL    string          `json:"image_url"`
}

func (p *dishPayload) validate() error {
	if p.Name == "" {
		return web.BadRequest("Dish must include a name")
	}
	if p.Description == "" {
		return web.BadRequest("Dish must include a description")
	}
	if absent(p.Price) {
		return web.BadRequest("Dish must include a price")
	}
	// Zero passes: only negative and non-integer prices are rejected.
	if price, ok := integer(p.Price); !ok || price < 0 {
		return web.BadRequest("Dish must have a price that is an integer greater than 0")
	}
	if p.ImageURL == "" {
		return web.BadRequest("Dish must include a image_url")
	}
	return nil
}

// apply copies the validated fields onto d, leaving d.ID alone.
func (p *dishPayload) apply(d *dish.Dish) {
	price, _ := integer(p.Price)
	d.Name = p.Name
	d.Description = p.Description
	d.Price = price
	d.ImageURL = p.ImageURL
}

// orderPayload is the "data" member of an order create/update body.
type orderPayload struct {
	ID           string          `json:"id"`
	DeliverTo    string          `json:"deliverTo"`
	MobileNumber string          `json:"mobileNumber"`
	Status       string          `json:"status"`
	Dishes       json.RawMessage `json:"dishes"`

	items []order.LineItem
}

// validate checks the payload and keeps the parsed line items for the
// terminal handler.
func (p *orderPayload) validate() error {
	if p.DeliverTo == "" {
		return web.BadRequest("Order must include a deliverTo")
	}
	if p.MobileNumber == "" {
		return web.BadRequest("Order must include a mobileNumber")
	}
	if absent(p.Dishes) {
		return web.BadRequest("Order must include a dish")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(p.Dishes, &raw); err != nil || len(raw) == 0 {
		return web.BadRequest("Order must include at least one dish")
	}

	items := make([]order.LineItem, 0, len(raw))
	for i, r := range raw {
		item, ok := lineItem(r)
		if !ok {
			return web.BadRequest("Dish %d must have a quantity that is an integer greater than 0", i)
		}
		items = append(items, item)
	}
	p.items = items
	return nil
}

// lineItem parses one entry of "dishes". Only the quantity is checked. The
// known snapshot fields are kept when they have the expected type; mistyped
// snapshot fields and unknown keys are dropped.
func lineItem(raw json.RawMessage) (order.LineItem, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return order.LineItem{}, false
	}
	qty, ok := integer(fields["quantity"])
	if !ok || qty <= 0 {
		return order.LineItem{}, false
	}

	item := order.LineItem{Quantity: qty}
	text := func(key string) string {
		var s string
		_ = json.Unmarshal(fields[key], &s)
		return s
	}
	item.ID = text("id")
	item.Name = text("name")
	item.Description = text("description")
	item.ImageURL = text("image_url")
	item.Price, _ = integer(fields["price"])
	return item, true
}

func absent(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// integer reports whether raw is a JSON number with no fractional part that
// fits in 32 bits. Strings holding digits do not count.
func integer(raw json.RawMessage) (int, bool) {
	if absent(raw) {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}

	if i, err := n.Int64(); err == nil {
		if i < math.MinInt32 || i > math.MaxInt32 {
			return 0, false
		}
		return int(i), true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
