// Package partsapi implements the catalog, pricing and order services the
// storefront talks to.
package partsapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/carbuild-backend/pkg/db"
	"github.com/angelmondragon/carbuild-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/carbuild-backend/pkg/errors"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
)

// PricingRule charges a flat shipping fee below the free-shipping threshold.
type PricingRule struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// DefaultPricingRule is free shipping from 200, otherwise 25.
func DefaultPricingRule() PricingRule {
	return PricingRule{
		FreeShippingThreshold: decimal.NewFromInt(200),
		ShippingFee:           decimal.NewFromInt(25),
	}
}

// ParsePricingRule builds a rule from its configured string form.
func ParsePricingRule(threshold, fee string) (PricingRule, error) {
	t, err := decimal.NewFromString(strings.TrimSpace(threshold))
	if err != nil {
		return PricingRule{}, fmt.Errorf("invalid free shipping threshold %q: %w", threshold, err)
	}
	f, err := decimal.NewFromString(strings.TrimSpace(fee))
	if err != nil {
		return PricingRule{}, fmt.Errorf("invalid shipping fee %q: %w", fee, err)
	}
	if t.IsNegative() || f.IsNegative() {
		return PricingRule{}, fmt.Errorf("shipping threshold and fee must not be negative")
	}
	return PricingRule{FreeShippingThreshold: t, ShippingFee: f}, nil
}

// Shipping returns the fee for subtotal and whether shipping is free.
func (r PricingRule) Shipping(subtotal decimal.Decimal) (decimal.Decimal, bool) {
	if subtotal.GreaterThanOrEqual(r.FreeShippingThreshold) {
		return decimal.Zero, true
	}
	return r.ShippingFee, false
}

type ItemInput struct {
	PartID   int64
	Quantity int
}

type PricedItem struct {
	PartID    int64
	PartName  string
	UnitPrice decimal.Decimal
	Quantity  int
	Subtotal  decimal.Decimal
}

type PriceQuote struct {
	Subtotal     decimal.Decimal
	Shipping     decimal.Decimal
	Total        decimal.Decimal
	FreeShipping bool
	Items        []PricedItem
}

type ReportItem struct {
	PartID    int64
	PartName  string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// Report is the stored summary of an order. Total is Subtotal plus Shipping.
type Report struct {
	OrderID   uuid.UUID
	CreatedAt time.Time
	Items     []ReportItem
	Subtotal  decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
}

// PlacedOrder is the result of CreateOrder. Replayed is set when the
// idempotency key matched an order placed earlier.
type PlacedOrder struct {
	Report   Report
	Replayed bool
}

// Receipt is the legacy checkout answer.
type Receipt struct {
	Report   Report
	Replayed bool
}

type GeneratedID struct {
	OrderID     uuid.UUID
	GeneratedAt time.Time
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service struct {
	repo *Repository
	tx   txRunner
	rule PricingRule
	logg *logger.Logger
	now  func() time.Time
}

func NewService(client *db.Client, rule PricingRule, logg *logger.Logger) *Service {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		repo: NewRepository(client.DB()),
		tx:   client,
		rule: rule,
		logg: logg,
		now:  time.Now,
	}
}

func (s *Service) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	vehicles, err := s.repo.ListVehicles(ctx)
	if err != nil {
		return nil, dbError(err, "list vehicles")
	}
	return vehicles, nil
}

func (s *Service) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	vehicle, err := s.repo.FindVehicle(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf(msgVehicleNotFound, id), "load vehicle")
	}
	return vehicle, nil
}

// ListVehicleParts lists the parts of an existing vehicle.
func (s *Service) ListVehicleParts(ctx context.Context, vehicleID int64) ([]models.Part, error) {
	if _, err := s.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	return s.ListParts(ctx, PartFilter{VehicleID: &vehicleID})
}

func (s *Service) ListParts(ctx context.Context, filter PartFilter) ([]models.Part, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_valor must not exceed max_valor")
	}
	parts, err := s.repo.ListParts(ctx, filter)
	if err != nil {
		return nil, dbError(err, "list parts")
	}
	return parts, nil
}

func (s *Service) GetPart(ctx context.Context, id int64) (*models.Part, error) {
	part, err := s.repo.FindPart(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf(msgPartNotFound, id), "load part")
	}
	return part, nil
}

// Messages returned to API clients, in the language of the wire contract.
const (
	MsgItemsRequired    = "Lista de itens é obrigatória"
	MsgItemFields       = "Cada item deve ter peca_id e quantidade"
	MsgQuantityPositive = "Quantidade deve ser maior que 0"
	msgPartNotFound     = "Peça com ID %d não encontrada"
	msgOrderNotFound    = "Pedido %s não encontrado"
	msgVehicleNotFound  = "Carro com ID %d não encontrado"
)

// ValidateItems checks an item list before pricing or ordering.
func ValidateItems(items []ItemInput) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, MsgItemsRequired)
	}
	for i, item := range items {
		if item.PartID <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, MsgItemFields).WithDetails(map[string]any{"index": i})
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, MsgQuantityPositive).WithDetails(map[string]any{"index": i})
		}
	}
	return nil
}

// CalculatePrice prices items with the current catalog prices.
func (s *Service) CalculatePrice(ctx context.Context, items []ItemInput) (*PriceQuote, error) {
	if err := ValidateItems(items); err != nil {
		return nil, err
	}
	priced, subtotal, err := s.priceItems(ctx, s.repo, items)
	if err != nil {
		return nil, err
	}
	shipping, free := s.rule.Shipping(subtotal)
	return &PriceQuote{
		Subtotal:     subtotal,
		Shipping:     shipping,
		Total:        subtotal.Add(shipping),
		FreeShipping: free,
		Items:        priced,
	}, nil
}

// CreateOrder stores an order for items. A repeated idempotency key returns
// the order created the first time instead of a new one.
func (s *Service) CreateOrder(ctx context.Context, items []ItemInput, idempotencyKey string) (*PlacedOrder, error) {
	if err := ValidateItems(items); err != nil {
		return nil, err
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" {
		if existing, err := s.repo.FindOrderByIdempotencyKey(ctx, idempotencyKey); err == nil {
			s.logg.Info(s.logg.WithOrderID(ctx, existing.PublicID.String()), "order replayed for idempotency key")
			return &PlacedOrder{Report: buildReport(existing), Replayed: true}, nil
		} else if !db.IsNotFound(err) {
			return nil, dbError(err, "load order by idempotency key")
		}
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		priced, subtotal, err := s.priceItems(ctx, repo, items)
		if err != nil {
			return err
		}

		shipping, _ := s.rule.Shipping(subtotal)
		order = &models.Order{
			PublicID:  uuid.New(),
			Shipping:  shipping,
			Total:     subtotal.Add(shipping),
			CreatedAt: s.now().UTC(),
			Items:     make([]models.OrderItem, 0, len(priced)),
		}
		if idempotencyKey != "" {
			order.IdempotencyKey = &idempotencyKey
		}
		for _, item := range priced {
			order.Items = append(order.Items, models.OrderItem{
				PartID:    item.PartID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		for i, item := range priced {
			order.Items[i].Part = &models.Part{ID: item.PartID, Name: item.PartName, UnitPrice: item.UnitPrice}
		}
		return nil
	})
	if err != nil {
		if idempotencyKey != "" && db.IsUniqueViolation(err, "") {
			existing, findErr := s.repo.FindOrderByIdempotencyKey(ctx, idempotencyKey)
			if findErr == nil {
				return &PlacedOrder{Report: buildReport(existing), Replayed: true}, nil
			}
		}
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, dbError(err, "create order")
	}

	s.logg.Info(s.logg.WithFields(s.logg.WithOrderID(ctx, order.PublicID.String()), map[string]any{
		"items":    len(order.Items),
		"shipping": order.Shipping.String(),
		"total":    order.Total.String(),
	}), "order created")
	return &PlacedOrder{Report: buildReport(order)}, nil
}

// Checkout is the legacy purchase flow. It places the same order as
// CreateOrder; only the answer's shape differs.
func (s *Service) Checkout(ctx context.Context, items []ItemInput, idempotencyKey string) (*Receipt, error) {
	placed, err := s.CreateOrder(ctx, items, idempotencyKey)
	if err != nil {
		return nil, err
	}
	return &Receipt{Report: placed.Report, Replayed: placed.Replayed}, nil
}

func (s *Service) OrderReport(ctx context.Context, orderID string) (*Report, error) {
	publicID, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf(msgOrderNotFound, orderID))
	}
	order, err := s.repo.FindOrderByPublicID(ctx, publicID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf(msgOrderNotFound, orderID), "load order")
	}
	report := buildReport(order)
	return &report, nil
}

func (s *Service) GenerateOrderID() GeneratedID {
	return GeneratedID{OrderID: uuid.New(), GeneratedAt: s.now()}
}

func (s *Service) priceItems(ctx context.Context, repo *Repository, items []ItemInput) ([]PricedItem, decimal.Decimal, error) {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.PartID)
	}
	parts, err := repo.FindPartsByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, dbError(err, "load parts")
	}

	subtotal := decimal.Zero
	priced := make([]PricedItem, 0, len(items))
	for _, item := range items {
		part, ok := parts[item.PartID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf(msgPartNotFound, item.PartID))
		}
		line := part.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(line)
		priced = append(priced, PricedItem{
			PartID:    part.ID,
			PartName:  part.Name,
			UnitPrice: part.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  line,
		})
	}
	return priced, subtotal, nil
}

func buildReport(order *models.Order) Report {
	report := Report{
		OrderID:   order.PublicID,
		CreatedAt: order.CreatedAt,
		Subtotal:  order.Total.Sub(order.Shipping),
		Shipping:  order.Shipping,
		Total:     order.Total,
		Items:     make([]ReportItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		name := ""
		if item.Part != nil {
			name = item.Part.Name
		}
		report.Items = append(report.Items, ReportItem{
			PartID:    item.PartID,
			PartName:  name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		})
	}
	return report
}

func notFoundOr(err error, notFound, op string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return dbError(err, op)
}

func dbError(err error, op string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
