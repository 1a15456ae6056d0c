package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/carbuild-backend/internal/catalog"
	"github.com/angelmondragon/carbuild-backend/internal/selection"
	"github.com/angelmondragon/carbuild-backend/pkg/errors"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
	"github.com/angelmondragon/carbuild-backend/pkg/metrics"
)

const (
	DefaultDebounceDelay  = 500 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
)

// Selection is the part of the selection store the synchronizer reads.
type Selection interface {
	Snapshot() selection.Snapshot
	Catalog() *catalog.Catalog
}

// Timer is the handle returned by a Scheduler.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. time.AfterFunc is the production scheduler.
type Scheduler func(d time.Duration, f func()) Timer

func realScheduler(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a Synchronizer. Zero values fall back to the defaults.
type Options struct {
	DebounceDelay  time.Duration
	RequestTimeout time.Duration
	Logger         *logger.Logger
	Metrics        *metrics.EngineMetrics
	Scheduler      Scheduler
	Now            func() time.Time
}

// Synchronizer keeps a price quote in step with the selection. Every change
// restarts a trailing debounce window; when it expires the current selection
// is priced and the answer is applied only if the selection has not changed
// since the request was issued.
type Synchronizer struct {
	selection Selection
	calc      Calculator
	delay     time.Duration
	timeout   time.Duration
	logg      *logger.Logger
	metrics   *metrics.EngineMetrics
	schedule  Scheduler
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      State
	timer      Timer
	generation uint64
	closed     bool
	listeners  []func(State)
}

func NewSynchronizer(sel Selection, calc Calculator, opts Options) *Synchronizer {
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = DefaultDebounceDelay
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = realScheduler
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		selection: sel,
		calc:      calc,
		delay:     opts.DebounceDelay,
		timeout:   opts.RequestTimeout,
		logg:      opts.Logger,
		metrics:   opts.Metrics,
		schedule:  opts.Scheduler,
		now:       opts.Now,
		ctx:       opts.Logger.WithField(ctx, "component", "pricing"),
		cancel:    cancel,
	}
}

// Subscribe registers fn to receive every state transition.
func (s *Synchronizer) Subscribe(fn func(State)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// State returns the current state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SettledQuote returns the quote only when it is settled for snap.
func (s *Synchronizer) SettledQuote(snap selection.Snapshot) *Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != PhaseSettled || !s.state.Quote.IsFor(snap) {
		return nil
	}
	return s.state.Quote
}

// SelectionChanged is the selection store listener. An empty selection settles
// immediately without pricing; anything else (re)arms the debounce window.
func (s *Synchronizer) SelectionChanged(selection.Snapshot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	if s.stopTimerLocked() {
		s.metrics.IncDebounceReset()
	}

	current := s.selection.Snapshot()
	if current.IsEmpty() {
		s.state = State{Phase: PhaseSettled}
		s.publishLocked()
		return
	}

	gen := s.generation
	s.timer = s.schedule(s.delay, func() { s.fire(gen) })
	s.state = State{Phase: PhaseDebouncing, Quote: s.state.Quote}
	s.publishLocked()
}

// Reset drops the quote and any pending work, e.g. on a vehicle change or
// after an order went through.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.generation++
	s.stopTimerLocked()
	s.state = State{Phase: PhaseIdle}
	s.publishLocked()
}

// Wait blocks until every in-flight pricing request has been applied or discarded.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

// Close stops the timer, cancels in-flight requests and waits for them.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	s.stopTimerLocked()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Synchronizer) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	snap := s.selection.Snapshot()
	if snap.IsEmpty() {
		s.state = State{Phase: PhaseSettled}
		s.publishLocked()
		return
	}

	items, err := resolveItems(snap, s.selection.Catalog())
	if err != nil {
		s.state = State{Phase: PhaseFailed, Err: err}
		s.metrics.ObservePricing(metrics.OutcomeFailure, 0)
		s.logg.Warn(s.logg.WithField(s.ctx, "error", err.Error()), "pricing request not built")
		s.publishLocked()
		return
	}

	s.state = State{Phase: PhaseFetching, Quote: s.state.Quote}
	s.wg.Add(1)
	s.publishLocked()

	s.logg.Debug(s.logg.WithField(s.ctx, "items", len(items)), "debounce fired, pricing selection")
	go s.fetch(gen, snap, items)
}

func (s *Synchronizer) fetch(gen uint64, snap selection.Snapshot, items []Item) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	started := s.now()
	totals, err := s.calc.CalculatePrice(ctx, items)
	s.apply(gen, snap, totals, err, s.now().Sub(started))
}

func (s *Synchronizer) apply(gen uint64, snap selection.Snapshot, totals Totals, err error, took time.Duration) {
	s.mu.Lock()
	if s.closed || gen != s.generation || !snap.Equal(s.selection.Snapshot()) {
		s.mu.Unlock()
		s.metrics.ObservePricing(metrics.OutcomeStale, took)
		s.logg.Info(s.logg.WithField(s.ctx, "outcome", metrics.OutcomeStale), "pricing result discarded")
		return
	}

	if err != nil {
		if errors.As(err) == nil {
			err = errors.Wrap(errors.CodeDependency, err, "calculate price")
		}
		s.state = State{Phase: PhaseFailed, Err: err}
		s.metrics.ObservePricing(metrics.OutcomeFailure, took)
		s.logg.Error(s.ctx, "pricing request failed", err)
		s.publishLocked()
		return
	}

	s.state = State{Phase: PhaseSettled, Quote: newQuote(totals, snap, s.now())}
	s.metrics.ObservePricing(metrics.OutcomeSuccess, took)
	s.publishLocked()
}

// publishLocked releases the lock and then notifies listeners.
func (s *Synchronizer) publishLocked() {
	state, listeners := s.state, s.listeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(state)
	}
}

func (s *Synchronizer) stopTimerLocked() bool {
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	return true
}

func resolveItems(snap selection.Snapshot, cat *catalog.Catalog) ([]Item, error) {
	entries := snap.Entries()
	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		if _, ok := cat.Lookup(entry.PartID); !ok {
			return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("part %s is not in the catalog", entry.PartID))
		}
		items = append(items, Item{PartID: entry.PartID, Quantity: entry.Quantity})
	}
	return items, nil
}
