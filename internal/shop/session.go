// Package shop runs one shopper's session: vehicle choice, part selection,
// live pricing and checkout.
package shop

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/carbuild-backend/internal/cartview"
	"github.com/angelmondragon/carbuild-backend/internal/catalog"
	"github.com/angelmondragon/carbuild-backend/internal/orders"
	"github.com/angelmondragon/carbuild-backend/internal/pricing"
	"github.com/angelmondragon/carbuild-backend/internal/selection"
	"github.com/angelmondragon/carbuild-backend/pkg/errors"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
)

type Options struct {
	Policy  selection.QuantityPolicy
	Pricing pricing.Options
	Orders  orders.Options
	Logger  *logger.Logger
}

// CartState is the cart as every view renders it, plus the pricing status.
type CartState struct {
	cartview.Cart
	Pricing pricing.Phase `json:"pricing"`
	Error   string        `json:"error,omitempty"`
}

type Session struct {
	source    catalog.Source
	store     *selection.Store
	pricer    *pricing.Synchronizer
	submitter *orders.Submitter
	logg      *logger.Logger

	mu           sync.Mutex
	confirmation *orders.Confirmation
	// missing parts already logged for the current vehicle
	warned map[catalog.PartID]struct{}
}

func NewSession(source catalog.Source, calc pricing.Calculator, client orders.Client, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Pricing.Logger == nil {
		opts.Pricing.Logger = opts.Logger
	}
	if opts.Orders.Logger == nil {
		opts.Orders.Logger = opts.Logger
	}

	store := selection.NewStore(opts.Policy, nil)
	pricer := pricing.NewSynchronizer(store, calc, opts.Pricing)
	store.Subscribe(pricer.SelectionChanged)

	return &Session{
		source:    source,
		store:     store,
		pricer:    pricer,
		submitter: orders.NewSubmitter(client, opts.Orders),
		logg:      opts.Logger,
	}
}

// Vehicles lists the vehicles the catalog carries parts for.
func (s *Session) Vehicles(ctx context.Context) ([]catalog.Vehicle, error) {
	return s.source.ListVehicles(ctx)
}

// SelectVehicle loads the parts of vehicleID and starts an empty selection
// against them. Any previous selection, quote and confirmation are dropped.
func (s *Session) SelectVehicle(ctx context.Context, vehicleID int64) (*catalog.Catalog, error) {
	vehicles, err := s.source.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	var vehicle *catalog.Vehicle
	for i := range vehicles {
		if vehicles[i].ID == vehicleID {
			vehicle = &vehicles[i]
			break
		}
	}
	if vehicle == nil {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("vehicle %d not found", vehicleID))
	}

	parts, err := s.source.ListPartsForVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	cat := catalog.New(*vehicle, parts)

	s.store.Reset(cat)
	s.pricer.Reset()
	s.mu.Lock()
	s.confirmation = nil
	s.warned = nil
	s.mu.Unlock()

	s.logg.Info(s.logg.WithFields(s.logg.WithVehicleID(ctx, vehicle.Key()), map[string]any{
		"model": vehicle.Model,
		"parts": cat.Len(),
	}), "vehicle selected")
	return cat, nil
}

// Catalog returns the parts of the selected vehicle.
func (s *Session) Catalog() (*catalog.Catalog, error) {
	cat := s.store.Catalog()
	if cat == nil {
		return nil, errors.New(errors.CodeStateConflict, "no vehicle selected")
	}
	return cat, nil
}

// SetQuantity accepts numeric or string part ids and returns the quantity
// actually stored after the policy clamp.
func (s *Session) SetQuantity(rawID any, quantity int) (int, error) {
	if s.store.Catalog() == nil {
		return 0, errors.New(errors.CodeStateConflict, "no vehicle selected")
	}
	id, err := catalog.ParsePartID(rawID)
	if err != nil {
		return 0, err
	}
	return s.store.SetQuantity(id, quantity), nil
}

// Cart derives the current cart view. Lines whose part is missing from the
// catalog are logged once per vehicle.
func (s *Session) Cart() CartState {
	snap := s.store.Snapshot()
	cat := s.store.Catalog()
	state := s.pricer.State()
	out := CartState{
		Cart:    cartview.Build(snap, cat, state.Quote),
		Pricing: state.Phase,
	}
	s.warnMissing(cat, out.Items)
	if state.Err != nil {
		if e := errors.As(state.Err); e != nil {
			out.Error = e.Message()
		} else {
			out.Error = state.Err.Error()
		}
	}
	return out
}

func (s *Session) warnMissing(cat *catalog.Catalog, items []cartview.LineItem) {
	for _, line := range items {
		if !line.Missing {
			continue
		}
		s.mu.Lock()
		_, seen := s.warned[line.PartID]
		if !seen {
			if s.warned == nil {
				s.warned = map[catalog.PartID]struct{}{}
			}
			s.warned[line.PartID] = struct{}{}
		}
		s.mu.Unlock()
		if seen {
			continue
		}
		ctx := s.logg.WithVehicleID(context.Background(), cat.Vehicle().Key())
		s.logg.Warn(s.logg.WithField(ctx, "part_id", string(line.PartID)), "selected part is not in the catalog")
	}
}

// Pricing exposes the synchronizer state.
func (s *Session) Pricing() pricing.State {
	return s.pricer.State()
}

// Checkout submits the priced selection. It returns (nil, nil) when there is
// nothing to submit yet. On success the ordered selection and its quote are
// cleared and the confirmation is kept until StartOver or another vehicle is
// chosen. Edits made while the order was in flight were not ordered and are
// kept; the synchronizer is already pricing them.
func (s *Session) Checkout(ctx context.Context) (*orders.Confirmation, error) {
	snap := s.store.Snapshot()
	cat := s.store.Catalog()
	ctx = s.logg.WithVehicleID(ctx, cat.Vehicle().Key())

	conf, err := s.submitter.Submit(ctx, snap, cat, s.pricer.SettledQuote(snap))
	if err != nil || conf == nil {
		return nil, err
	}

	if s.store.ClearIf(snap) {
		s.pricer.Reset()
	} else {
		s.logg.Info(s.logg.WithOrderID(ctx, conf.OrderID), "selection changed while the order was in flight, keeping the newer edits")
	}
	s.mu.Lock()
	s.confirmation = conf
	s.mu.Unlock()
	return conf, nil
}

// Confirmation returns the last order placed in this session, if any.
func (s *Session) Confirmation() *orders.Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmation
}

// StartOver discards the confirmation, the vehicle and the selection.
func (s *Session) StartOver() {
	s.store.Reset(nil)
	s.pricer.Reset()
	s.mu.Lock()
	s.confirmation = nil
	s.warned = nil
	s.mu.Unlock()
}

// WaitPricing blocks until in-flight pricing requests are applied or discarded.
func (s *Session) WaitPricing() {
	s.pricer.Wait()
}

func (s *Session) Close() {
	s.pricer.Close()
}
