package selection

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/carbuild-backend/internal/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.New(catalog.Vehicle{ID: 1, Model: "Civic", Year: 2020}, []catalog.Part{
		{ID: "1", Name: "Chassi", UnitPrice: decimal.NewFromInt(1000)},
		{ID: "2", Name: "Pneu", UnitPrice: decimal.NewFromInt(300)},
		{ID: "3", Name: "Farol", UnitPrice: decimal.NewFromInt(150)},
	})
}

func TestStoreSetQuantityClampsAndRemoves(t *testing.T) {
	t.Parallel()

	store := NewStore(DefaultPolicy(), testCatalog())

	assert.Equal(t, 1, store.SetQuantity("1", 5))
	assert.Equal(t, 4, store.SetQuantity("2", 9))
	assert.Equal(t, 2, store.SetQuantity("3", 2))
	assert.Equal(t, 7, store.TotalItemCount())

	assert.Equal(t, 0, store.SetQuantity("3", 0))
	assert.Equal(t, 0, store.Quantity("3"))
	assert.Equal(t, 0, store.SetQuantity("3", -1))
	assert.Equal(t, 5, store.TotalItemCount())

	snap := store.Snapshot()
	assert.Equal(t, []Entry{{PartID: "1", Quantity: 1}, {PartID: "2", Quantity: 4}}, snap.Entries())
}

func TestStoreUnknownPartUsesDefaultMax(t *testing.T) {
	t.Parallel()

	store := NewStore(DefaultPolicy(), testCatalog())
	assert.Equal(t, DefaultMaxQuantity, store.SetQuantity("42", 10))
}

func TestStoreNumericAndStringIDsShareEntry(t *testing.T) {
	t.Parallel()

	store := NewStore(DefaultPolicy(), testCatalog())

	numeric, err := catalog.ParsePartID(2)
	require.NoError(t, err)
	text, err := catalog.ParsePartID("2")
	require.NoError(t, err)

	store.SetQuantity(numeric, 1)
	store.SetQuantity(text, 3)

	snap := store.Snapshot()
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, 3, snap.Quantity(numeric))
}

func TestStoreNotifiesOnlyOnChange(t *testing.T) {
	t.Parallel()

	store := NewStore(DefaultPolicy(), testCatalog())
	var seen []Snapshot
	store.Subscribe(func(s Snapshot) { seen = append(seen, s) })

	store.SetQuantity("2", 2)
	store.SetQuantity("2", 2)
	store.SetQuantity("1", 3)
	store.SetQuantity("1", 1)
	store.SetQuantity("3", 0)
	store.Clear()
	store.Clear()

	require.Len(t, seen, 3)
	assert.Equal(t, 2, seen[0].Quantity("2"))
	assert.Equal(t, 1, seen[1].Quantity("1"))
	assert.True(t, seen[2].IsEmpty())
}

func TestStoreClearIfOnlyClearsMatchingSelection(t *testing.T) {
	t.Parallel()

	store := NewStore(DefaultPolicy(), testCatalog())
	store.SetQuantity("2", 2)
	ordered := store.Snapshot()

	store.SetQuantity("3", 1)
	var notified int
	store.Subscribe(func(Snapshot) { notified++ })

	assert.False(t, store.ClearIf(ordered))
	assert.Equal(t, 3, store.TotalItemCount())
	assert.Zero(t, notified)

	assert.True(t, store.ClearIf(store.Snapshot()))
	assert.Equal(t, 0, store.TotalItemCount())
	assert.Equal(t, 1, notified)
}

func TestStoreResetSwapsCatalog(t *testing.T) {
	t.Parallel()

	store := NewStore(DefaultPolicy(), testCatalog())
	store.SetQuantity("2", 2)

	next := catalog.New(catalog.Vehicle{ID: 2, Model: "Gol", Year: 2018}, []catalog.Part{
		{ID: "2", Name: "Chassi Gol", UnitPrice: decimal.NewFromInt(900)},
	})
	store.Reset(next)

	assert.Equal(t, 0, store.TotalItemCount())
	assert.Equal(t, int64(2), store.Catalog().Vehicle().ID)
	assert.Equal(t, 1, store.SetQuantity("2", 4))
}

func TestStoreInvariantsHoldForRandomEdits(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	store := NewStore(DefaultPolicy(), testCatalog())
	ids := []catalog.PartID{"1", "2", "3", "4"}

	for i := 0; i < 500; i++ {
		store.SetQuantity(ids[rng.Intn(len(ids))], rng.Intn(12)-4)

		snap := store.Snapshot()
		sum := 0
		for _, entry := range snap.Entries() {
			if entry.Quantity <= 0 {
				t.Fatalf("step %d: stored non-positive quantity %+v", i, entry)
			}
			if entry.PartID == "1" && entry.Quantity != 1 {
				t.Fatalf("step %d: chassis quantity %d", i, entry.Quantity)
			}
			if entry.Quantity > DefaultMaxQuantity {
				t.Fatalf("step %d: quantity above max %+v", i, entry)
			}
			sum += entry.Quantity
		}
		if got := store.TotalItemCount(); got != sum {
			t.Fatalf("step %d: TotalItemCount=%d, sum=%d", i, got, sum)
		}
	}
}
