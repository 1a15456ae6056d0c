package models

import "time"

// Vehicle is a car model the catalog carries parts for.
type Vehicle struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Model     string    `gorm:"column:model;size:30;not null"`
	Year      int       `gorm:"column:year;not null"`
	Parts     []Part    `gorm:"foreignKey:VehicleID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
