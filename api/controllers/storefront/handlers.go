// Package storefront exposes the shopping session over HTTP.
package storefront

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/carbuild-backend/api/responses"
	"github.com/angelmondragon/carbuild-backend/api/validators"
	"github.com/angelmondragon/carbuild-backend/internal/catalog"
	"github.com/angelmondragon/carbuild-backend/internal/orders"
	"github.com/angelmondragon/carbuild-backend/internal/shop"
	pkgerrors "github.com/angelmondragon/carbuild-backend/pkg/errors"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
)

// Session is the subset of shop.Session the handlers drive.
type Session interface {
	Vehicles(ctx context.Context) ([]catalog.Vehicle, error)
	SelectVehicle(ctx context.Context, vehicleID int64) (*catalog.Catalog, error)
	Catalog() (*catalog.Catalog, error)
	SetQuantity(rawID any, quantity int) (int, error)
	Cart() shop.CartState
	Checkout(ctx context.Context) (*orders.Confirmation, error)
	Confirmation() *orders.Confirmation
	StartOver()
}

func ListVehicles(svc Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicles, err := svc.Vehicles(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vehicles)
	}
}

func SelectVehicle(svc Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body selectVehicleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cat, err := svc.SelectVehicle(r.Context(), body.VehicleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCatalogResponse(cat))
	}
}

func ListParts(svc Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, err := svc.Catalog()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCatalogResponse(cat))
	}
}

func SetQuantity(svc Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partID := chi.URLParam(r, "partID")
		var body setQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		applied, err := svc.SetQuantity(partID, *body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, setQuantityResponse{
			PartID:    partID,
			Requested: *body.Quantity,
			Quantity:  applied,
			Clamped:   applied != *body.Quantity,
			Cart:      svc.Cart(),
		})
	}
}

func Cart(svc Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Cart())
	}
}

// Checkout answers 422 while the cart is empty or its quote is not settled.
func Checkout(svc Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conf, err := svc.Checkout(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if conf == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty or still being priced").
				WithDetails(map[string]any{"pricing": svc.Cart().Pricing}))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, conf)
	}
}

func Confirmation(svc Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conf := svc.Confirmation()
		if conf == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no order placed in this session"))
			return
		}
		responses.WriteSuccess(w, conf)
	}
}

func StartOver(svc Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.StartOver()
		responses.WriteSuccess(w, svc.Cart())
	}
}
