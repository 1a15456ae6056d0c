package pricing

import "fmt"

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDebouncing
	PhaseFetching
	PhaseSettled
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:       "idle",
	PhaseDebouncing: "debouncing",
	PhaseFetching:   "fetching",
	PhaseSettled:    "settled",
	PhaseFailed:     "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is what the synchronizer exposes to readers. Quote is nil in Settled
// when the selection is empty, and always nil in Failed. While debouncing or
// fetching it still holds the last settled quote, which callers must treat as
// stale unless Quote.IsFor matches their snapshot.
type State struct {
	Phase Phase
	Quote *Quote
	Err   error
}

// Pending reports whether a newer quote is on its way.
func (s State) Pending() bool {
	return s.Phase == PhaseDebouncing || s.Phase == PhaseFetching
}
