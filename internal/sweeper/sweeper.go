package sweeper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"auctionhousego/internal/domain"
	"auctionhousego/internal/events"
)

// Store is the persistence surface the sweeper drives.
type Store interface {
	MarkEnded(ctx context.Context, now time.Time) (int64, error)
	MarkActive(ctx context.Context, now time.Time) (int64, error)
	ListEndedUnsettled(ctx context.Context) ([]domain.Auction, error)
	SetWinner(ctx context.Context, id uuid.UUID, winner uuid.UUID, amount decimal.Decimal, now time.Time) error
}

// Report counts what one sweep did.
type Report struct {
	Transitioned int
	Settled      int
	Failed       int
}

// Sweeper is the sole driver of forward time for every auction: a
// stateless batch pass that transitions statuses in bulk and settles
// winners per record. Each tick re-evaluates true elapsed time, so a
// missed tick heals on the next one.
type Sweeper struct {
	store    Store
	rdc      *redis.Client
	interval time.Duration
}

func New(store Store, rdc *redis.Client, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{store: store, rdc: rdc, interval: interval}
}

// Run sweeps once immediately, catching auctions that matured while the
// process was down, then on every tick until the context ends.
func (s *Sweeper) Run(ctx context.Context) {
	go func() {
		s.sweep(ctx)
		tk := time.NewTicker(s.interval)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tk.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Sweeper) sweep(ctx context.Context) {
	rep := s.SweepOnce(ctx, time.Now().UTC())
	if rep.Transitioned == 0 && rep.Settled == 0 && rep.Failed == 0 {
		return
	}
	zap.L().Info("sweep_complete",
		zap.Int("transitioned", rep.Transitioned),
		zap.Int("settled", rep.Settled),
		zap.Int("failed", rep.Failed),
	)
}

// SweepOnce runs the two passes: first transition every stale status in
// bulk (overdue windows close before the active pass runs, so a fully
// elapsed window goes upcoming -> ended and never resurrects), then
// settle each ended, winner-less auction that has bids. One record's
// failure never blocks the rest.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) Report {
	var rep Report

	ended, err := s.store.MarkEnded(ctx, now)
	if err != nil {
		zap.L().Error("sweep.mark_ended", zap.Error(err))
		rep.Failed++
	}
	rep.Transitioned += int(ended)

	activated, err := s.store.MarkActive(ctx, now)
	if err != nil {
		zap.L().Error("sweep.mark_active", zap.Error(err))
		rep.Failed++
	}
	rep.Transitioned += int(activated)

	// settlement still runs after a failed status pass: auctions ended by
	// earlier sweeps may be waiting for a winner
	pending, err := s.store.ListEndedUnsettled(ctx)
	if err != nil {
		zap.L().Error("sweep.list_unsettled", zap.Error(err))
		rep.Failed++
		return rep
	}

	for i := range pending {
		a := &pending[i]
		domain.Settle(a)
		if a.Winner == nil {
			continue
		}
		if err := s.store.SetWinner(ctx, a.ID, *a.Winner, a.CurrentHighestBid, now); err != nil {
			zap.L().Error("sweep.settle", zap.String("auction_id", a.ID.String()), zap.Error(err))
			rep.Failed++
			continue
		}
		rep.Settled++
		events.Publish(ctx, s.rdc, a.ID, events.NewAuctionSettled(*a.Winner, a.CurrentHighestBid))
	}
	return rep
}
