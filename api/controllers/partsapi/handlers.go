// Package partsapi serves the catalog, pricing and order endpoints in the
// {status, data, message} envelope.
package partsapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/carbuild-backend/api/middleware"
	"github.com/angelmondragon/carbuild-backend/api/responses"
	"github.com/angelmondragon/carbuild-backend/api/validators"
	svc "github.com/angelmondragon/carbuild-backend/internal/partsapi"
	"github.com/angelmondragon/carbuild-backend/pkg/db/models"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
)

const maxNameFilterLen = 50

type Service interface {
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
	ListVehicleParts(ctx context.Context, vehicleID int64) ([]models.Part, error)
	ListParts(ctx context.Context, filter svc.PartFilter) ([]models.Part, error)
	GetPart(ctx context.Context, id int64) (*models.Part, error)
	CalculatePrice(ctx context.Context, items []svc.ItemInput) (*svc.PriceQuote, error)
	CreateOrder(ctx context.Context, items []svc.ItemInput, idempotencyKey string) (*svc.PlacedOrder, error)
	Checkout(ctx context.Context, items []svc.ItemInput, idempotencyKey string) (*svc.Receipt, error)
	OrderReport(ctx context.Context, orderID string) (*svc.Report, error)
	GenerateOrderID() svc.GeneratedID
}

func ListVehicles(s Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicles, err := s.ListVehicles(r.Context())
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		out := make([]vehicleResponse, 0, len(vehicles))
		for _, v := range vehicles {
			out = append(out, newVehicleResponse(v))
		}
		responses.WriteStatusList(w, out)
	}
}

func GetVehicle(s Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(chi.URLParam(r, "carID"), "car_id")
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		vehicle, err := s.GetVehicle(r.Context(), id)
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		responses.WriteStatusSuccess(w, http.StatusOK, newVehicleResponse(*vehicle))
	}
}

func ListVehicleParts(s Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(chi.URLParam(r, "carID"), "car_id")
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		parts, err := s.ListVehicleParts(r.Context(), id)
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		responses.WriteStatusList(w, newPartResponses(parts))
	}
}

// ListParts filters by nome (substring, case-insensitive), car_id, min_valor
// and max_valor.
func ListParts(s Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := svc.PartFilter{
			Name: validators.SanitizeString(r.URL.Query().Get("nome"), maxNameFilterLen),
		}
		var err error
		if filter.VehicleID, err = validators.ParseQueryID(r, "car_id"); err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		if filter.MinPrice, err = validators.ParseQueryDecimal(r, "min_valor"); err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		if filter.MaxPrice, err = validators.ParseQueryDecimal(r, "max_valor"); err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}

		parts, err := s.ListParts(r.Context(), filter)
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		responses.WriteStatusList(w, newPartResponses(parts))
	}
}

func GetPart(s Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathID(chi.URLParam(r, "partID"), "peca_id")
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		part, err := s.GetPart(r.Context(), id)
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		responses.WriteStatusSuccess(w, http.StatusOK, newPartResponse(*part))
	}
}

func CalculatePrice(s Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := decodeItems(r)
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		quote, err := s.CalculatePrice(r.Context(), items)
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		responses.WriteStatusSuccess(w, http.StatusOK, newPriceResponse(quote))
	}
}

// CreateOrder answers 201 for a new order and 200 when the Idempotency-Key
// matched an order placed earlier.
func CreateOrder(s Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := decodeItems(r)
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		placed, err := s.CreateOrder(r.Context(), items, r.Header.Get(middleware.IdempotencyHeader))
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if placed.Replayed {
			status = http.StatusOK
		}
		responses.WriteStatusSuccess(w, status, newOrderResponse(placed.Report))
	}
}

func OrderReport(s Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := s.OrderReport(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		responses.WriteStatusSuccess(w, http.StatusOK, newReportResponse(*report))
	}
}

func GenerateOrderID(s Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := s.GenerateOrderID()
		responses.WriteStatusSuccess(w, http.StatusOK, generatedIDResponse{
			OrderID:     id.OrderID.String(),
			GeneratedAt: id.GeneratedAt.UTC().Format(time.RFC3339Nano),
		})
	}
}

// LegacyCheckout serves POST /pagar with the flat receipt shape.
func LegacyCheckout(s Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body legacyCheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		items, err := toItemInputs(body.items())
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		receipt, err := s.Checkout(r.Context(), items, r.Header.Get(middleware.IdempotencyHeader))
		if err != nil {
			responses.WriteStatusError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if receipt.Replayed {
			status = http.StatusOK
		}
		responses.WriteJSON(w, status, newLegacyReceiptResponse(receipt))
	}
}

// Pinger is a dependency checked by Health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports each dependency as online or offline and answers 503 when
// any of them is down.
func Health(deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services := make(map[string]string, len(deps))
		healthy := true
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				healthy = false
				services[name] = "offline"
				if logg != nil {
					logg.Warn(logg.WithFields(r.Context(), map[string]any{"dependency": name, "error": err.Error()}), "dependency health check failed")
				}
				continue
			}
			services[name] = "online"
		}

		status, code := "success", http.StatusOK
		if !healthy {
			status, code = "warning", http.StatusServiceUnavailable
		}
		responses.WriteJSON(w, code, map[string]any{
			"status":    status,
			"gateway":   "online",
			"services":  services,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func decodeItems(r *http.Request) ([]svc.ItemInput, error) {
	var body itemsRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return nil, err
	}
	return toItemInputs(body.Items)
}
