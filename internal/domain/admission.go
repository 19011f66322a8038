package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckBid validates a proposed bid against the live auction state.
// Checks run in a fixed order and the first failure wins:
// active window, above base price, above current highest. Both equal
// amounts and lower amounts are rejected.
func CheckBid(a *Auction, amount decimal.Decimal, now time.Time) error {
	if ComputeStatus(a, now) != StatusActive {
		return ErrInactiveAuction
	}
	if !amount.GreaterThan(a.BasePrice) {
		return ErrBelowBasePrice
	}
	if !amount.GreaterThan(a.CurrentHighestBid) {
		return ErrBidTooLow
	}
	return nil
}

// ApplyBid appends an admitted bid and raises the highest-bid watermark.
// CheckBid must have passed against the same state.
func (a *Auction) ApplyBid(b Bid) {
	a.Bids = append(a.Bids, b)
	a.CurrentHighestBid = b.Amount
	a.Version++
	a.UpdatedAt = b.PlacedAt
}
