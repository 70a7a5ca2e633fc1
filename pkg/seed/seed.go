// Package seed loads the starter dishes and orders shipped with the binary.
package seed

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"grubdash/pkg/dish"
	"grubdash/pkg/order"
)

//go:embed data/*.json
var data embed.FS

// Result counts the records inserted by Load. Records whose id already exists
// are skipped, so loading twice is harmless.
type Result struct {
	Dishes int
	Orders int
}

// Load inserts the embedded dishes and orders.
func Load(ctx context.Context, dishes dish.Repository, orders order.Repository) (Result, error) {
	var res Result

	var ds []dish.Dish
	if err := decode("data/dishes.json", &ds); err != nil {
		return res, err
	}
	for _, d := range ds {
		err := dishes.Create(ctx, d)
		switch {
		case err == nil:
			res.Dishes++
		case errors.Is(err, dish.ErrConflict):
		default:
			return res, fmt.Errorf("seed dish %s: %w", d.ID, err)
		}
	}

	var ords []order.Order
	if err := decode("data/orders.json", &ords); err != nil {
		return res, err
	}
	for _, o := range ords {
		err := orders.Create(ctx, o)
		switch {
		case err == nil:
			res.Orders++
		case errors.Is(err, order.ErrConflict):
		default:
			return res, fmt.Errorf("seed order %s: %w", o.ID, err)
		}
	}

	return res, nil
}

func decode(name string, dst any) error {
	b, err := data.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
