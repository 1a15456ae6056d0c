package partsapi

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/carbuild-backend/pkg/db/models"
)

// PartFilter narrows a part listing. Nil fields are ignored.
type PartFilter struct {
	Name      string
	VehicleID *int64
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
}

// Repository wraps the parts API tables.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *Repository) FindVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := r.db.WithContext(ctx).First(&vehicle, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// FindVehicleByModel matches model case-insensitively.
func (r *Repository) FindVehicleByModel(ctx context.Context, model string, year int) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.db.WithContext(ctx).
		Where("lower(model) = ? AND year = ?", strings.ToLower(strings.TrimSpace(model)), year).
		First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *Repository) CreateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	return r.db.WithContext(ctx).Omit("Parts").Create(vehicle).Error
}

func (r *Repository) ListParts(ctx context.Context, filter PartFilter) ([]models.Part, error) {
	query := r.db.WithContext(ctx).Model(&models.Part{})
	if name := strings.TrimSpace(filter.Name); name != "" {
		query = query.Where("lower(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if filter.VehicleID != nil {
		query = query.Where("vehicle_id = ?", *filter.VehicleID)
	}
	if filter.MinPrice != nil {
		query = query.Where("unit_price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("unit_price <= ?", *filter.MaxPrice)
	}

	var parts []models.Part
	if err := query.Order("id ASC").Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

func (r *Repository) FindPart(ctx context.Context, id int64) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).Preload("Vehicle").First(&part, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

// FindPartsByIDs returns the parts found, keyed by id. Missing ids are simply absent.
func (r *Repository) FindPartsByIDs(ctx context.Context, ids []int64) (map[int64]models.Part, error) {
	out := make(map[int64]models.Part, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var parts []models.Part
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&parts).Error; err != nil {
		return nil, err
	}
	for _, part := range parts {
		out[part.ID] = part
	}
	return out, nil
}

// FindPartByName returns the part named name on vehicleID (nil for unassigned parts).
func (r *Repository) FindPartByName(ctx context.Context, name string, vehicleID *int64) (*models.Part, error) {
	query := r.db.WithContext(ctx).Where("name = ?", name)
	if vehicleID == nil {
		query = query.Where("vehicle_id IS NULL")
	} else {
		query = query.Where("vehicle_id = ?", *vehicleID)
	}
	var part models.Part
	if err := query.First(&part).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *Repository) CreatePart(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Omit("Vehicle").Create(part).Error
}

// CreateOrder inserts the order and its items.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *Repository) FindOrderByPublicID(ctx context.Context, publicID uuid.UUID) (*models.Order, error) {
	return r.findOrder(ctx, "public_id = ?", publicID)
}

func (r *Repository) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	return r.findOrder(ctx, "idempotency_key = ?", key)
}

func (r *Repository) findOrder(ctx context.Context, query string, arg any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Part").
		Where(query, arg).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
