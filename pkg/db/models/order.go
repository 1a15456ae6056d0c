package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a placed order. PublicID is the identifier shared with clients.
// Total includes Shipping.
type Order struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement"`
	PublicID       uuid.UUID       `gorm:"column:public_id;type:uuid;uniqueIndex;not null"`
	Shipping       decimal.Decimal `gorm:"column:shipping;type:numeric(10,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(10,2);not null"`
	IdempotencyKey *string         `gorm:"column:idempotency_key;size:128;uniqueIndex"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderItem keeps the unit price the part had when the order was placed.
type OrderItem struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"column:order_id;not null;index"`
	PartID    int64           `gorm:"column:part_id;not null"`
	Part      *Part           `gorm:"foreignKey:PartID"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
}

// Subtotal is quantity times the recorded unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
