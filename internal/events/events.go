package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Every auction has its own pub/sub channel, "auc:<id>:events". The
// websocket layer subscribes per auction and fans payloads out to the
// room; publishing is best effort and never fails the write path.

func Channel(auctionID uuid.UUID) string {
	return "auc:" + auctionID.String() + ":events"
}

type BidPlaced struct {
	Event    string          `json:"event"`
	BidderID uuid.UUID       `json:"bidder_id"`
	Amount   decimal.Decimal `json:"amount"`
	PlacedAt time.Time       `json:"placed_at"`
}

type StatusChanged struct {
	Event  string    `json:"event"`
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

type AuctionSettled struct {
	Event  string          `json:"event"`
	Winner uuid.UUID       `json:"winner"`
	Amount decimal.Decimal `json:"amount"`
}

func NewBidPlaced(bidderID uuid.UUID, amount decimal.Decimal, placedAt time.Time) BidPlaced {
	return BidPlaced{Event: "bid", BidderID: bidderID, Amount: amount, PlacedAt: placedAt}
}

func NewStatusChanged(status string, at time.Time) StatusChanged {
	return StatusChanged{Event: "status", Status: status, At: at}
}

func NewAuctionSettled(winner uuid.UUID, amount decimal.Decimal) AuctionSettled {
	return AuctionSettled{Event: "settled", Winner: winner, Amount: amount}
}

// Publish marshals the event onto the auction's channel. Errors are
// logged, not returned: a lost live update is self-healing (clients
// refetch snapshots), a lost bid is not, so the caller must already have
// persisted before publishing.
func Publish(ctx context.Context, rdc *redis.Client, auctionID uuid.UUID, event any) {
	if rdc == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		zap.L().Warn("events.marshal", zap.Error(err))
		return
	}
	if err := rdc.Publish(ctx, Channel(auctionID), payload).Err(); err != nil {
		zap.L().Warn("events.publish", zap.String("auction_id", auctionID.String()), zap.Error(err))
	}
}
