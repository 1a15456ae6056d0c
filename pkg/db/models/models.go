// Package models holds the gorm models of the parts API.
package models

// All lists every model in dependency order, for AutoMigrate.
func All() []any {
	return []any{&Vehicle{}, &Part{}, &Order{}, &OrderItem{}}
}
