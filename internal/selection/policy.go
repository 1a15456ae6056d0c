package selection

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/angelmondragon/carbuild-backend/internal/catalog"
)

const (
	DefaultMaxQuantity        = 4
	DefaultMaxChassisQuantity = 1
	DefaultChassisKeyword     = "chassi"
)

// QuantityPolicy caps how many units of a part a shopper may select. Parts whose
// name contains the chassis keyword (case-insensitively) are limited to
// ChassisMax; everything else to DefaultMax.
type QuantityPolicy struct {
	DefaultMax     int
	ChassisMax     int
	ChassisKeyword string
}

// DefaultPolicy returns the stock limits: one chassis, four of anything else.
func DefaultPolicy() QuantityPolicy {
	return QuantityPolicy{
		DefaultMax:     DefaultMaxQuantity,
		ChassisMax:     DefaultMaxChassisQuantity,
		ChassisKeyword: DefaultChassisKeyword,
	}
}

// MaxQuantity is pure and never fails.
func (p QuantityPolicy) MaxQuantity(part catalog.Part) int {
	if p.IsChassis(part) {
		return atLeastOne(p.ChassisMax, DefaultMaxChassisQuantity)
	}
	return atLeastOne(p.DefaultMax, DefaultMaxQuantity)
}

// IsChassis applies the name heuristic.
func (p QuantityPolicy) IsChassis(part catalog.Part) bool {
	keyword := p.ChassisKeyword
	if strings.TrimSpace(keyword) == "" {
		keyword = DefaultChassisKeyword
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(part.Name), fold.String(keyword))
}

// Clamp bounds quantity to [0, MaxQuantity(part)].
func (p QuantityPolicy) Clamp(part catalog.Part, quantity int) int {
	if quantity <= 0 {
		return 0
	}
	if limit := p.MaxQuantity(part); quantity > limit {
		return limit
	}
	return quantity
}

func atLeastOne(value, fallback int) int {
	if value < 1 {
		return fallback
	}
	return value
}
