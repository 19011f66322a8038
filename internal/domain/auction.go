package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of an auction. Transitions are monotonic:
// upcoming -> active -> ended, or upcoming -> ended when the whole
// window elapsed before anyone looked. Ended is terminal.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
)

var (
	ErrNotFound        = errors.New("auction not found")
	ErrInactiveAuction = errors.New("bids can only be placed on active auctions")
	ErrBelowBasePrice  = errors.New("bid must be greater than base price")
	ErrBidTooLow       = errors.New("bid must be higher than current highest bid")
	ErrConcurrentBid   = errors.New("auction changed while placing bid")

	ErrEndNotAfterStart = errors.New("end time must be after start time")
	ErrStartNotFuture   = errors.New("start time must be in the future")
	ErrBasePriceInvalid = errors.New("base price must be positive")
)

// Bid is a single admitted bid. The bids slice on Auction is append-only
// and insertion-ordered; history is never rewritten.
type Bid struct {
	BidderID uuid.UUID       `json:"bidder_id"`
	Amount   decimal.Decimal `json:"amount"`
	PlacedAt time.Time       `json:"placed_at"`
}

type Auction struct {
	ID                uuid.UUID       `json:"id"`
	SellerID          uuid.UUID       `json:"seller_id"`
	BasePrice         decimal.Decimal `json:"base_price"`
	StartTime         time.Time       `json:"start_time"`
	EndTime           time.Time       `json:"end_time"`
	Status            Status          `json:"status"`
	Bids              []Bid           `json:"bids,omitempty"`
	CurrentHighestBid decimal.Decimal `json:"current_highest_bid"`
	Winner            *uuid.UUID      `json:"winner,omitempty"`

	// Version guards bid admission: every bid append bumps it, and the
	// persistence layer conditions the write on the version it read.
	Version int64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New builds an upcoming auction for a seller. The base price is rounded
// to two decimals; both window edges must lie in the future at creation.
func New(sellerID uuid.UUID, basePrice decimal.Decimal, startTime, endTime time.Time, now time.Time) (*Auction, error) {
	if !basePrice.IsPositive() {
		return nil, ErrBasePriceInvalid
	}
	if !startTime.After(now) {
		return nil, ErrStartNotFuture
	}
	if !endTime.After(startTime) {
		return nil, ErrEndNotAfterStart
	}
	return &Auction{
		ID:                uuid.New(),
		SellerID:          sellerID,
		BasePrice:         basePrice.Round(2),
		StartTime:         startTime.UTC(),
		EndTime:           endTime.UTC(),
		Status:            StatusUpcoming,
		CurrentHighestBid: decimal.Zero,
		CreatedAt:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}, nil
}

// HighestBid returns the maximum-amount bid, ties broken by earliest
// PlacedAt, or nil when no bids exist.
func (a *Auction) HighestBid() *Bid {
	var top *Bid
	for i := range a.Bids {
		b := &a.Bids[i]
		switch {
		case top == nil || b.Amount.GreaterThan(top.Amount):
			top = b
		case b.Amount.Equal(top.Amount) && b.PlacedAt.Before(top.PlacedAt):
			top = b
		}
	}
	return top
}

// TimeRemaining reports how long until the auction closes; negative once
// the window has elapsed.
func (a *Auction) TimeRemaining(now time.Time) time.Duration {
	return a.EndTime.Sub(now)
}
