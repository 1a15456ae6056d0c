package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/carbuild-backend/internal/catalog"
	"github.com/angelmondragon/carbuild-backend/internal/selection"
)

// Item is one priced line of a pricing request.
type Item struct {
	PartID   catalog.PartID
	Quantity int
}

// Totals is what the remote pricing service answers.
type Totals struct {
	Subtotal     decimal.Decimal
	Shipping     decimal.Decimal
	Total        decimal.Decimal
	FreeShipping bool
}

// Calculator prices a list of items.
type Calculator interface {
	CalculatePrice(ctx context.Context, items []Item) (Totals, error)
}

// CalculatorFunc adapts a function to Calculator.
type CalculatorFunc func(ctx context.Context, items []Item) (Totals, error)

func (f CalculatorFunc) CalculatePrice(ctx context.Context, items []Item) (Totals, error) {
	return f(ctx, items)
}

// Quote is a priced summary computed for one selection snapshot.
type Quote struct {
	Subtotal     decimal.Decimal
	Shipping     decimal.Decimal
	Total        decimal.Decimal
	FreeShipping bool
	Snapshot     selection.Snapshot
	PricedAt     time.Time
}

func newQuote(totals Totals, snap selection.Snapshot, at time.Time) *Quote {
	total := totals.Total
	if total.IsZero() {
		total = totals.Subtotal.Add(totals.Shipping)
	}
	return &Quote{
		Subtotal:     totals.Subtotal,
		Shipping:     totals.Shipping,
		Total:        total,
		FreeShipping: totals.FreeShipping,
		Snapshot:     snap,
		PricedAt:     at,
	}
}

// IsFor reports whether the quote was computed for a selection equal to snap.
func (q *Quote) IsFor(snap selection.Snapshot) bool {
	return q != nil && q.Snapshot.Equal(snap)
}
