package partsapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/angelmondragon/carbuild-backend/pkg/config"
	"github.com/angelmondragon/carbuild-backend/pkg/db"
	"github.com/angelmondragon/carbuild-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/carbuild-backend/pkg/errors"
)

const testSeed = `
vehicles:
  - model: Civic
    year: 2020
    parts:
      - name: "Chassi Monobloco"
        unit_price: "4500.00"
      - name: "Filtro de Ar"
        unit_price: "40.00"
      - name: "Pneu"
        unit_price: "250.00"
  - model: Gol
    year: 2018
    parts:
      - name: "Filtro de Ar"
        unit_price: "35.00"
unassigned_parts:
  - name: "Fluido de Freio"
    unit_price: "25.00"
`

var fixedNow = time.Date(2025, 3, 4, 15, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	conn, err := db.Open(sqlite.Open(db.MemoryDSN(strings.ReplaceAll(t.Name(), "/", "_"))))
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))

	svc := NewService(db.NewFromDB(conn, config.DriverSQLite), DefaultPricingRule(), nil)
	svc.now = func() time.Time { return fixedNow }

	file, err := LoadSeed(strings.NewReader(testSeed))
	require.NoError(t, err)
	_, err = svc.Seed(context.Background(), file)
	require.NoError(t, err)
	return svc
}

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(t, want).Equal(got), "want %s, got %s", want, got)
}

func TestPricingRuleShipping(t *testing.T) {
	rule := DefaultPricingRule()

	fee, free := rule.Shipping(dec(t, "199.99"))
	assertDecimal(t, "25", fee)
	assert.False(t, free)

	fee, free = rule.Shipping(dec(t, "200"))
	assertDecimal(t, "0", fee)
	assert.True(t, free)
}

func TestParsePricingRule(t *testing.T) {
	rule, err := ParsePricingRule("150", " 12.5 ")
	require.NoError(t, err)
	assertDecimal(t, "150", rule.FreeShippingThreshold)
	assertDecimal(t, "12.5", rule.ShippingFee)

	_, err = ParsePricingRule("abc", "1")
	assert.Error(t, err)
	_, err = ParsePricingRule("100", "-1")
	assert.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	file, err := LoadSeed(strings.NewReader(testSeed))
	require.NoError(t, err)

	result, err := svc.Seed(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, result)

	vehicles, err := svc.ListVehicles(context.Background())
	require.NoError(t, err)
	assert.Len(t, vehicles, 2)
}

func TestDefaultSeedLoads(t *testing.T) {
	file, err := DefaultSeed()
	require.NoError(t, err)
	assert.Len(t, file.Vehicles, 10)
	assert.Len(t, file.UnassignedParts, 2)
	assert.Equal(t, "Civic", file.Vehicles[0].Model)
}

func TestLoadSeedRejectsBadPrice(t *testing.T) {
	_, err := LoadSeed(strings.NewReader("vehicles:\n  - model: Uno\n    year: 2016\n    parts:\n      - name: Pneu\n        unit_price: cheap\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit_price")
}

func TestListVehicleParts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	parts, err := svc.ListVehicleParts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, "Chassi Monobloco", parts[0].Name)

	_, err = svc.ListVehicleParts(ctx, 99)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPartsFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	parts, err := svc.ListParts(ctx, PartFilter{Name: "filtro"})
	require.NoError(t, err)
	assert.Len(t, parts, 2)

	minPrice := dec(t, "30")
	maxPrice := dec(t, "300")
	parts, err = svc.ListParts(ctx, PartFilter{MinPrice: &minPrice, MaxPrice: &maxPrice})
	require.NoError(t, err)
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"Filtro de Ar", "Pneu", "Filtro de Ar"}, names)

	_, err = svc.ListParts(ctx, PartFilter{MinPrice: &maxPrice, MaxPrice: &minPrice})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetPartPreloadsVehicle(t *testing.T) {
	svc := newTestService(t)

	part, err := svc.GetPart(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, part.Vehicle)
	assert.Equal(t, "Civic", part.Vehicle.Model)

	_, err = svc.GetPart(context.Background(), 404)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCalculatePrice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	quote, err := svc.CalculatePrice(ctx, []ItemInput{{PartID: 2, Quantity: 2}})
	require.NoError(t, err)
	assertDecimal(t, "80", quote.Subtotal)
	assertDecimal(t, "25", quote.Shipping)
	assertDecimal(t, "105", quote.Total)
	assert.False(t, quote.FreeShipping)
	require.Len(t, quote.Items, 1)
	assert.Equal(t, "Filtro de Ar", quote.Items[0].PartName)

	quote, err = svc.CalculatePrice(ctx, []ItemInput{{PartID: 3, Quantity: 1}})
	require.NoError(t, err)
	assertDecimal(t, "0", quote.Shipping)
	assertDecimal(t, "250", quote.Total)
	assert.True(t, quote.FreeShipping)
}

func TestCalculatePriceErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CalculatePrice(ctx, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CalculatePrice(ctx, []ItemInput{{PartID: 2, Quantity: 0}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CalculatePrice(ctx, []ItemInput{{PartID: 999, Quantity: 1}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateOrderAndReport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	placed, err := svc.CreateOrder(ctx, []ItemInput{{PartID: 1, Quantity: 1}, {PartID: 2, Quantity: 3}}, "")
	require.NoError(t, err)
	assert.False(t, placed.Replayed)
	assert.NotEqual(t, uuid.Nil, placed.Report.OrderID)
	assertDecimal(t, "4620", placed.Report.Total)
	assertDecimal(t, "0", placed.Report.Shipping)
	require.Len(t, placed.Report.Items, 2)
	assert.Equal(t, "Filtro de Ar", placed.Report.Items[1].PartName)
	assertDecimal(t, "120", placed.Report.Items[1].Subtotal)

	report, err := svc.OrderReport(ctx, placed.Report.OrderID.String())
	require.NoError(t, err)
	assert.Equal(t, placed.Report.OrderID, report.OrderID)
	assert.True(t, fixedNow.Equal(report.CreatedAt))
	assertDecimal(t, "4620", report.Total)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "Chassi Monobloco", report.Items[0].PartName)
	assertDecimal(t, "4500", report.Items[0].UnitPrice)
}

func TestCreateOrderReplaysIdempotencyKey(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	items := []ItemInput{{PartID: 3, Quantity: 2}}

	first, err := svc.CreateOrder(ctx, items, "key-1")
	require.NoError(t, err)
	second, err := svc.CreateOrder(ctx, items, "key-1")
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Report.OrderID, second.Report.OrderID)

	third, err := svc.CreateOrder(ctx, items, "key-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.Report.OrderID, third.Report.OrderID)
}

func TestCreateOrderMissingPartRollsBack(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, []ItemInput{{PartID: 2, Quantity: 1}, {PartID: 77, Quantity: 1}}, "k")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.repo.FindOrderByIdempotencyKey(ctx, "k")
	assert.True(t, db.IsNotFound(err))
}

func TestOrderReportNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.OrderReport(context.Background(), "not-a-uuid")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.OrderReport(context.Background(), uuid.NewString())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateOrderChargesShippingLikeTheQuote(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	items := []ItemInput{{PartID: 2, Quantity: 2}}

	quote, err := svc.CalculatePrice(ctx, items)
	require.NoError(t, err)
	placed, err := svc.CreateOrder(ctx, items, "")
	require.NoError(t, err)

	assertDecimal(t, "80", placed.Report.Subtotal)
	assertDecimal(t, "25", placed.Report.Shipping)
	assertDecimal(t, quote.Total.String(), placed.Report.Total)

	report, err := svc.OrderReport(ctx, placed.Report.OrderID.String())
	require.NoError(t, err)
	assertDecimal(t, "25", report.Shipping)
	assertDecimal(t, "105", report.Total)
}

func TestCheckoutAddsShipping(t *testing.T) {
	svc := newTestService(t)

	receipt, err := svc.Checkout(context.Background(), []ItemInput{{PartID: 2, Quantity: 1}}, "")
	require.NoError(t, err)
	assertDecimal(t, "40", receipt.Report.Subtotal)
	assertDecimal(t, "25", receipt.Report.Shipping)
	assertDecimal(t, "65", receipt.Report.Total)
}

func TestGenerateOrderID(t *testing.T) {
	svc := newTestService(t)

	a := svc.GenerateOrderID()
	b := svc.GenerateOrderID()
	assert.NotEqual(t, a.OrderID, b.OrderID)
	assert.Equal(t, fixedNow, a.GeneratedAt)
}
