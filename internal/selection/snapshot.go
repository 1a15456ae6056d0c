package selection

import "github.com/angelmondragon/carbuild-backend/internal/catalog"

// Entry is one selected part. Quantity is always positive.
type Entry struct {
	PartID   catalog.PartID `json:"part_id"`
	Quantity int            `json:"quantity"`
}

// Snapshot is an immutable copy of the selection at a point in time. It tags
// in-flight pricing requests so late responses can be recognized as stale.
type Snapshot struct {
	entries []Entry
	index   map[catalog.PartID]int
}

func newSnapshot(entries []Entry) Snapshot {
	snap := Snapshot{
		entries: make([]Entry, len(entries)),
		index:   make(map[catalog.PartID]int, len(entries)),
	}
	copy(snap.entries, entries)
	for i, entry := range snap.entries {
		snap.index[entry.PartID] = i
	}
	return snap
}

// NewSnapshot builds a snapshot from arbitrary entries, applying the store's
// invariants: non-positive quantities are dropped and later duplicates win.
func NewSnapshot(entries ...Entry) Snapshot {
	order := make([]catalog.PartID, 0, len(entries))
	quantities := make(map[catalog.PartID]int, len(entries))
	for _, entry := range entries {
		if _, seen := quantities[entry.PartID]; !seen {
			order = append(order, entry.PartID)
		}
		quantities[entry.PartID] = entry.Quantity
	}
	clean := make([]Entry, 0, len(order))
	for _, id := range order {
		if qty := quantities[id]; qty > 0 {
			clean = append(clean, Entry{PartID: id, Quantity: qty})
		}
	}
	return newSnapshot(clean)
}

// Entries returns the entries in selection order.
func (s Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s Snapshot) Len() int {
	return len(s.entries)
}

func (s Snapshot) IsEmpty() bool {
	return len(s.entries) == 0
}

// Quantity returns the selected quantity for id, or 0.
func (s Snapshot) Quantity(id catalog.PartID) int {
	if idx, ok := s.index[id]; ok {
		return s.entries[idx].Quantity
	}
	return 0
}

func (s Snapshot) TotalItemCount() int {
	total := 0
	for _, entry := range s.entries {
		total += entry.Quantity
	}
	return total
}

// Equal compares the mappings structurally; selection order does not matter.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.entries) != len(other.entries) {
		return false
	}
	for _, entry := range s.entries {
		if other.Quantity(entry.PartID) != entry.Quantity {
			return false
		}
	}
	return true
}
