package storefront

import (
	"github.com/angelmondragon/carbuild-backend/internal/catalog"
	"github.com/angelmondragon/carbuild-backend/internal/shop"
)

type selectVehicleRequest struct {
	VehicleID int64 `json:"vehicle_id" validate:"required,gt=0"`
}

// Quantity is a pointer so an explicit 0 passes required. Zero or a negative
// quantity removes the part.
type setQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type setQuantityResponse struct {
	PartID    string         `json:"part_id"`
	Requested int            `json:"requested"`
	Quantity  int            `json:"quantity"`
	Clamped   bool           `json:"clamped"`
	Cart      shop.CartState `json:"cart"`
}

type catalogResponse struct {
	Vehicle catalog.Vehicle `json:"vehicle"`
	Parts   []catalog.Part  `json:"parts"`
}

func newCatalogResponse(cat *catalog.Catalog) catalogResponse {
	return catalogResponse{Vehicle: cat.Vehicle(), Parts: cat.Parts()}
}
