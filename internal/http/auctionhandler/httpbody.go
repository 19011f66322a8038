package auctionhandler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateAuctionBody struct {
	SellerID  uuid.UUID       `json:"seller_id"  binding:"required" example:"7e3f6c1a-2f7b-4f1e-9f1a-6a2b3c4d5e6f"`
	BasePrice decimal.Decimal `json:"base_price" binding:"required" example:"50"`
	StartTime time.Time       `json:"start_time" binding:"required" example:"2026-03-01T16:00:00Z"`
	EndTime   time.Time       `json:"end_time"   binding:"required" example:"2026-03-01T18:00:00Z"`
}

type PlaceBidBody struct {
	BidderID uuid.UUID       `json:"bidder_id" binding:"required" example:"0b8d6a2e-9c3f-4d5e-8f1a-2b3c4d5e6f70"`
	Amount   decimal.Decimal `json:"amount"    binding:"required" example:"120.50"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ListAuctionsQuery struct {
	Status string `form:"status"  binding:"omitempty,oneof=upcoming active ended"`
	Limit  int    `form:"limit,default=10"  binding:"gte=0,lte=100"`
	Offset int    `form:"offset,default=0"  binding:"gte=0"`
}
