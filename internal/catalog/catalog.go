package catalog

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
)

// Vehicle is a car model the catalog carries parts for.
type Vehicle struct {
	ID    int64  `json:"id"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

// Key returns the vehicle id in the string form used for cache keys and logs.
func (v Vehicle) Key() string {
	return strconv.FormatInt(v.ID, 10)
}

// Part is immutable once fetched for a given vehicle.
type Part struct {
	ID        PartID          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Source lists vehicles and the parts available for each of them.
type Source interface {
	ListVehicles(ctx context.Context) ([]Vehicle, error)
	ListPartsForVehicle(ctx context.Context, vehicleID int64) ([]Part, error)
}

// Catalog is a read-only snapshot of the parts offered for one vehicle.
type Catalog struct {
	vehicle Vehicle
	parts   []Part
	byID    map[PartID]int
}

// New builds a catalog snapshot. Later duplicates of an id are ignored.
func New(vehicle Vehicle, parts []Part) *Catalog {
	c := &Catalog{
		vehicle: vehicle,
		parts:   make([]Part, 0, len(parts)),
		byID:    make(map[PartID]int, len(parts)),
	}
	for _, part := range parts {
		if _, seen := c.byID[part.ID]; seen {
			continue
		}
		c.byID[part.ID] = len(c.parts)
		c.parts = append(c.parts, part)
	}
	return c
}

func (c *Catalog) Vehicle() Vehicle {
	if c == nil {
		return Vehicle{}
	}
	return c.vehicle
}

// Parts returns a copy of the parts in the order the source listed them.
func (c *Catalog) Parts() []Part {
	if c == nil {
		return nil
	}
	out := make([]Part, len(c.parts))
	copy(out, c.parts)
	return out
}

// Lookup resolves a part by its normalized id. A nil catalog resolves nothing.
func (c *Catalog) Lookup(id PartID) (Part, bool) {
	if c == nil {
		return Part{}, false
	}
	idx, ok := c.byID[id]
	if !ok {
		return Part{}, false
	}
	return c.parts[idx], true
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.parts)
}
