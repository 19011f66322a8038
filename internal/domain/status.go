package domain

import "time"

// ComputeStatus derives the status an auction should hold at the given
// instant. Pure: callers persist the result only when it differs from the
// stored status. An auction already ended stays ended regardless of the
// clock; an auction whose whole window elapsed unobserved goes straight
// from upcoming to ended.
func ComputeStatus(a *Auction, now time.Time) Status {
	switch {
	case a.Status == StatusEnded:
		return StatusEnded
	case !now.Before(a.EndTime):
		return StatusEnded
	case !now.Before(a.StartTime):
		return StatusActive
	default:
		return StatusUpcoming
	}
}
