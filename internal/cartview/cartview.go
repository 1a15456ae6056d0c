// Package cartview derives the totals and line items every cart surface
// displays. Summary and full-cart views must both go through Build.
package cartview

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/carbuild-backend/internal/catalog"
	"github.com/angelmondragon/carbuild-backend/internal/pricing"
	"github.com/angelmondragon/carbuild-backend/internal/selection"
)

// MissingPartLabel formats the placeholder name of a part the catalog no longer carries.
const MissingPartLabel = "Part %s (not found)"

type LineItem struct {
	PartID    catalog.PartID  `json:"part_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Missing   bool            `json:"missing,omitempty"`
}

type Cart struct {
	Vehicle   catalog.Vehicle `json:"vehicle"`
	Items     []LineItem      `json:"items"`
	ItemCount int             `json:"item_count"`
	// LinesTotal is the catalog-priced sum of the lines, available before any quote.
	LinesTotal   decimal.Decimal `json:"lines_total"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Shipping     decimal.Decimal `json:"shipping"`
	Total        decimal.Decimal `json:"total"`
	FreeShipping bool            `json:"free_shipping"`
	Priced       bool            `json:"priced"`
	Warnings     []string        `json:"warnings,omitempty"`
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Build is pure and never fails. Totals come from quote only when it was
// computed for snap; otherwise they stay zero and Priced is false.
func Build(snap selection.Snapshot, cat *catalog.Catalog, quote *pricing.Quote) Cart {
	cart := Cart{
		Vehicle:    cat.Vehicle(),
		Items:      make([]LineItem, 0, snap.Len()),
		LinesTotal: decimal.Zero,
		Subtotal:   decimal.Zero,
		Shipping:   decimal.Zero,
		Total:      decimal.Zero,
	}

	for _, entry := range snap.Entries() {
		line := LineItem{
			PartID:    entry.PartID,
			Quantity:  entry.Quantity,
			UnitPrice: decimal.Zero,
			Subtotal:  decimal.Zero,
		}
		if part, ok := cat.Lookup(entry.PartID); ok {
			line.Name = part.Name
			line.UnitPrice = part.UnitPrice
			line.Subtotal = part.UnitPrice.Mul(decimal.NewFromInt(int64(entry.Quantity)))
		} else {
			line.Name = fmt.Sprintf(MissingPartLabel, entry.PartID)
			line.Missing = true
			cart.Warnings = append(cart.Warnings, fmt.Sprintf("part %s is not in the catalog", entry.PartID))
		}
		cart.Items = append(cart.Items, line)
		cart.ItemCount += entry.Quantity
		cart.LinesTotal = cart.LinesTotal.Add(line.Subtotal)
	}

	if quote.IsFor(snap) && !snap.IsEmpty() {
		cart.Subtotal = quote.Subtotal
		cart.Shipping = quote.Shipping
		cart.Total = quote.Total
		cart.FreeShipping = quote.FreeShipping
		cart.Priced = true
	}
	return cart
}
