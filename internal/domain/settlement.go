package domain

// Settle assigns the winner of an ended auction. The winning bid is the
// maximum amount, ties broken by earliest placement. Idempotent: an
// auction that already has a winner, is not ended, or received no bids is
// returned unchanged. Bids are retained for audit either way.
func Settle(a *Auction) *Auction {
	if a.Status != StatusEnded || a.Winner != nil || len(a.Bids) == 0 {
		return a
	}
	top := a.HighestBid()
	winner := top.BidderID
	a.Winner = &winner
	a.CurrentHighestBid = top.Amount
	return a
}
