package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Part is a purchasable component, optionally tied to one vehicle.
type Part struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string          `gorm:"column:name;size:50;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	VehicleID *int64          `gorm:"column:vehicle_id;index"`
	Vehicle   *Vehicle        `gorm:"foreignKey:VehicleID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
