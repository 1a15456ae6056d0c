package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/carbuild-backend/internal/catalog"
	"github.com/angelmondragon/carbuild-backend/internal/pricing"
	"github.com/angelmondragon/carbuild-backend/internal/selection"
	"github.com/angelmondragon/carbuild-backend/pkg/errors"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
	"github.com/angelmondragon/carbuild-backend/pkg/metrics"
)

// Line is one order line in the integer id form the order service expects.
// Name and UnitPrice come from the catalog; only the legacy checkout sends them.
type Line struct {
	PartID    int64
	Quantity  int
	Name      string
	UnitPrice decimal.Decimal
}

// Request is what gets sent to the order service.
type Request struct {
	Lines          []Line
	Total          decimal.Decimal
	IdempotencyKey string
}

// Client submits an order and returns the raw response body.
type Client interface {
	SubmitOrder(ctx context.Context, req Request) (json.RawMessage, error)
}

type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.EngineMetrics
	NewKey  func() string
	Now     func() time.Time
}

// Submitter turns a priced selection into an order. It never mutates the
// selection; clearing it after a successful order is the caller's job.
type Submitter struct {
	client  Client
	logg    *logger.Logger
	metrics *metrics.EngineMetrics
	newKey  func() string
	now     func() time.Time
}

func NewSubmitter(client Client, opts Options) *Submitter {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.NewKey == nil {
		opts.NewKey = func() string { return uuid.NewString() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Submitter{
		client:  client,
		logg:    opts.Logger,
		metrics: opts.Metrics,
		newKey:  opts.NewKey,
		now:     opts.Now,
	}
}

// Submit places the order for snap. With an empty selection, or without a
// quote computed for exactly this selection, it does nothing and returns
// (nil, nil). A selected part missing from cat aborts before anything is sent.
func (s *Submitter) Submit(ctx context.Context, snap selection.Snapshot, cat *catalog.Catalog, quote *pricing.Quote) (*Confirmation, error) {
	if snap.IsEmpty() || !quote.IsFor(snap) {
		s.metrics.ObserveOrder(metrics.OutcomeSkipped, "", 0)
		s.logg.Info(ctx, "order submission skipped: selection empty or not priced")
		return nil, nil
	}

	lines, err := BuildLines(snap, cat)
	if err != nil {
		s.metrics.ObserveOrder(metrics.OutcomeFailure, "", 0)
		return nil, err
	}

	req := Request{Lines: lines, Total: quote.Total, IdempotencyKey: s.newKey()}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"idempotency_key": req.IdempotencyKey,
		"lines":           len(lines),
	})

	started := s.now()
	body, err := s.client.SubmitOrder(ctx, req)
	took := s.now().Sub(started)
	if err != nil {
		if errors.As(err) == nil {
			err = errors.Wrap(errors.CodeDependency, err, "submit order")
		}
		s.metrics.ObserveOrder(metrics.OutcomeFailure, "", took)
		s.logg.Error(ctx, "order submission failed", err)
		return nil, err
	}

	conf, err := Normalize(body)
	if err != nil {
		s.metrics.ObserveOrder(metrics.OutcomeFailure, "", took)
		s.logg.Error(ctx, "order response rejected", err)
		return nil, err
	}
	s.metrics.ObserveOrder(metrics.OutcomeSuccess, string(conf.Shape), took)

	ctx = s.logg.WithOrderID(ctx, conf.OrderID)
	if !conf.Total.Equal(quote.Total) {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"quoted_total":    quote.Total.String(),
			"confirmed_total": conf.Total.String(),
		}), "confirmed total differs from quote")
	}
	s.logg.Info(s.logg.WithField(ctx, "shape", string(conf.Shape)), "order confirmed")
	return conf, nil
}

// BuildLines resolves every entry against cat, in selection order.
func BuildLines(snap selection.Snapshot, cat *catalog.Catalog) ([]Line, error) {
	entries := snap.Entries()
	lines := make([]Line, 0, len(entries))
	for _, entry := range entries {
		part, ok := cat.Lookup(entry.PartID)
		if !ok {
			return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("part %s is not in the catalog", entry.PartID))
		}
		id, err := entry.PartID.Int()
		if err != nil {
			return nil, err
		}
		lines = append(lines, Line{
			PartID:    id,
			Quantity:  entry.Quantity,
			Name:      part.Name,
			UnitPrice: part.UnitPrice,
		})
	}
	return lines, nil
}
