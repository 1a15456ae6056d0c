package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCatalogLookupAndOrder(t *testing.T) {
	t.Parallel()

	cat := New(Vehicle{ID: 1, Model: "Civic", Year: 2020}, []Part{
		{ID: "2", Name: "Chassi", UnitPrice: decimal.NewFromInt(1000)},
		{ID: "1", Name: "Pneu", UnitPrice: decimal.NewFromInt(300)},
		{ID: "2", Name: "Duplicate", UnitPrice: decimal.NewFromInt(1)},
	})

	if cat.Len() != 2 {
		t.Fatalf("expected duplicates to be dropped, got %d parts", cat.Len())
	}
	parts := cat.Parts()
	if parts[0].ID != "2" || parts[1].ID != "1" {
		t.Fatalf("expected source order to be preserved, got %+v", parts)
	}
	part, ok := cat.Lookup(MustPartID(2))
	if !ok || part.Name != "Chassi" {
		t.Fatalf("unexpected lookup result %+v ok=%v", part, ok)
	}
	if _, ok := cat.Lookup("99"); ok {
		t.Fatal("expected miss for unknown id")
	}

	parts[0].Name = "mutated"
	if again, _ := cat.Lookup("2"); again.Name != "Chassi" {
		t.Fatal("Parts() must return a copy")
	}
}

func TestNilCatalogResolvesNothing(t *testing.T) {
	t.Parallel()

	var cat *Catalog
	if _, ok := cat.Lookup("1"); ok {
		t.Fatal("nil catalog should not resolve parts")
	}
	if cat.Len() != 0 || cat.Parts() != nil {
		t.Fatal("nil catalog should be empty")
	}
}
