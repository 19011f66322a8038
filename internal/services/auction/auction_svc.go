package auction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"auctionhousego/internal/domain"
	"auctionhousego/internal/events"
)

// Store is the persistence surface the service needs. *store.Store
// satisfies it; tests substitute a mock.
type Store interface {
	CreateAuction(ctx context.Context, a *domain.Auction) error
	GetAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error)
	ListAuctions(ctx context.Context, status domain.Status, limit, offset int) ([]domain.Auction, error)
	DeleteAuction(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status, now time.Time) error
	AppendBid(ctx context.Context, id uuid.UUID, b domain.Bid, version int64) error
}

type IAuctionService interface {
	CreateAuction(ctx context.Context, sellerID uuid.UUID, basePrice decimal.Decimal, startTime, endTime time.Time) (*domain.Auction, error)
	GetAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error)
	ListAuctions(ctx context.Context, status domain.Status, limit, offset int) ([]domain.Auction, error)
	PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount decimal.Decimal) (*domain.Auction, error)
	DeleteAuction(ctx context.Context, id uuid.UUID) error
}

type auctionService struct {
	store      Store
	rdc        *redis.Client
	maxRetries int
	now        func() time.Time
}

func NewAuctionService(store Store, rdc *redis.Client, maxRetries int) IAuctionService {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &auctionService{
		store:      store,
		rdc:        rdc,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

func (svc *auctionService) CreateAuction(ctx context.Context, sellerID uuid.UUID, basePrice decimal.Decimal, startTime, endTime time.Time) (*domain.Auction, error) {
	a, err := domain.New(sellerID, basePrice, startTime, endTime, svc.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := svc.store.CreateAuction(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (svc *auctionService) GetAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	return svc.store.GetAuction(ctx, id)
}

func (svc *auctionService) ListAuctions(ctx context.Context, status domain.Status, limit, offset int) ([]domain.Auction, error) {
	return svc.store.ListAuctions(ctx, status, limit, offset)
}

func (svc *auctionService) DeleteAuction(ctx context.Context, id uuid.UUID) error {
	return svc.store.DeleteAuction(ctx, id)
}

// PlaceBid admits a bid against live auction state. Each attempt reloads
// the record, recomputes status with this request's clock (a stale stored
// status never gates admission), runs the admission checks, and appends
// through the version-guarded conditional update. A lost race reloads and
// retries; after maxRetries conflicts the caller gets ErrConcurrentBid.
func (svc *auctionService) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount decimal.Decimal) (*domain.Auction, error) {
	now := svc.now().UTC()

	for attempt := 0; attempt < svc.maxRetries; attempt++ {
		a, err := svc.store.GetAuction(ctx, auctionID)
		if err != nil {
			return nil, err
		}

		if st := domain.ComputeStatus(a, now); st != a.Status {
			if err := svc.store.UpdateStatus(ctx, a.ID, a.Status, st, now); err != nil {
				return nil, err
			}
			a.Status = st
			events.Publish(ctx, svc.rdc, a.ID, events.NewStatusChanged(string(st), now))
		}

		if err := domain.CheckBid(a, amount, now); err != nil {
			return nil, err
		}

		bid := domain.Bid{BidderID: bidderID, Amount: amount, PlacedAt: now}
		err = svc.store.AppendBid(ctx, a.ID, bid, a.Version)
		if errors.Is(err, domain.ErrConcurrentBid) {
			zap.L().Debug("bid_conflict_retry",
				zap.String("auction_id", auctionID.String()),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		a.ApplyBid(bid)
		events.Publish(ctx, svc.rdc, a.ID, events.NewBidPlaced(bidderID, amount, now))
		return a, nil
	}
	return nil, domain.ErrConcurrentBid
}
