package selection

import (
	"sync"

	"github.com/angelmondragon/carbuild-backend/internal/catalog"
)

// Listener is invoked after every mutation that changed the selection, outside
// the store's lock, with the snapshot that mutation produced.
type Listener func(Snapshot)

// Reader is the read-only view of a Store handed to components that must not mutate it.
type Reader interface {
	Snapshot() Snapshot
	TotalItemCount() int
}

// Store owns the selected part quantities for the active vehicle. Every mutation
// goes through SetQuantity, Clear or Reset.
type Store struct {
	mu         sync.Mutex
	policy     QuantityPolicy
	catalog    *catalog.Catalog
	order      []catalog.PartID
	quantities map[catalog.PartID]int
	listeners  []Listener
}

// NewStore builds an empty store enforcing policy against the parts in cat.
func NewStore(policy QuantityPolicy, cat *catalog.Catalog) *Store {
	return &Store{
		policy:     policy,
		catalog:    cat,
		quantities: map[catalog.PartID]int{},
	}
}

// Subscribe registers l for change notifications.
func (s *Store) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// SetQuantity upserts or removes the entry for id and returns the stored quantity.
// Non-positive quantities remove the entry; larger ones are clamped to the part's
// maximum. Parts unknown to the catalog fall back to the default maximum.
func (s *Store) SetQuantity(id catalog.PartID, quantity int) int {
	s.mu.Lock()
	part, ok := s.catalog.Lookup(id)
	if !ok {
		part = catalog.Part{ID: id}
	}
	applied := s.policy.Clamp(part, quantity)
	current, present := s.quantities[id]

	changed := false
	switch {
	case applied == 0 && present:
		delete(s.quantities, id)
		s.order = removeID(s.order, id)
		changed = true
	case applied > 0 && !present:
		s.quantities[id] = applied
		s.order = append(s.order, id)
		changed = true
	case applied > 0 && current != applied:
		s.quantities[id] = applied
		changed = true
	}
	snap, listeners := s.snapshotLocked(), s.listeners
	s.mu.Unlock()

	if changed {
		notify(listeners, snap)
	}
	return applied
}

// Quantity returns the stored quantity for id, or 0.
func (s *Store) Quantity(id catalog.PartID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantities[id]
}

// TotalItemCount sums every stored quantity.
func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, qty := range s.quantities {
		total += qty
	}
	return total
}

// Snapshot returns an immutable copy of the current selection.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Catalog returns the catalog the store currently validates against.
func (s *Store) Catalog() *catalog.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Clear empties the selection.
func (s *Store) Clear() {
	s.mu.Lock()
	changed := len(s.order) > 0
	s.order = nil
	s.quantities = map[catalog.PartID]int{}
	listeners := s.listeners
	s.mu.Unlock()

	if changed {
		notify(listeners, Snapshot{})
	}
}

// ClearIf empties the selection only while it still equals snap. It reports
// whether the selection was cleared.
func (s *Store) ClearIf(snap Snapshot) bool {
	s.mu.Lock()
	if !s.snapshotLocked().Equal(snap) {
		s.mu.Unlock()
		return false
	}
	changed := len(s.order) > 0
	s.order = nil
	s.quantities = map[catalog.PartID]int{}
	listeners := s.listeners
	s.mu.Unlock()

	if changed {
		notify(listeners, Snapshot{})
	}
	return true
}

// Reset empties the selection and switches to the catalog of another vehicle.
func (s *Store) Reset(cat *catalog.Catalog) {
	s.mu.Lock()
	s.catalog = cat
	s.mu.Unlock()
	s.Clear()
}

func (s *Store) snapshotLocked() Snapshot {
	entries := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, Entry{PartID: id, Quantity: s.quantities[id]})
	}
	return newSnapshot(entries)
}

func notify(listeners []Listener, snap Snapshot) {
	for _, l := range listeners {
		l(snap)
	}
}

func removeID(ids []catalog.PartID, target catalog.PartID) []catalog.PartID {
	out := ids[:0:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
