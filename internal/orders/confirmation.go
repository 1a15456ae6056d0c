package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

const StatusConfirmed = "confirmed"

// Shape names the response contract an order confirmation was decoded from.
type Shape string

const (
	ShapeFlat      Shape = "flat"
	ShapeEnveloped Shape = "enveloped"
)

// Confirmation is the canonical record of a completed order, whatever shape
// the backend answered with. It is immutable once built.
type Confirmation struct {
	OrderID   string             `json:"order_id"`
	Status    string             `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
	Shipping  decimal.Decimal    `json:"shipping"`
	Total     decimal.Decimal    `json:"total"`
	Items     []ConfirmationItem `json:"items"`
	Shape     Shape              `json:"shape"`
}

type ConfirmationItem struct {
	Quantity  int             `json:"quantity"`
	PartName  string          `json:"part_name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// ItemCount sums the purchased quantities.
func (c *Confirmation) ItemCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}
