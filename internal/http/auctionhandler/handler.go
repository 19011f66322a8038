package auctionhandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"auctionhousego/internal/domain"
	auctionsvc "auctionhousego/internal/services/auction"
)

type Handler struct {
	svc auctionsvc.IAuctionService
}

func New(svc auctionsvc.IAuctionService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/auctions", h.create)
	r.GET("/auctions", h.list)
	r.GET("/auctions/:id", h.info)
	r.DELETE("/auctions/:id", h.remove)
	r.POST("/auctions/:id/bid", h.bid)
}

// create opens a new auction listing for a seller. The window must be
// fully in the future and the base price positive.
func (h *Handler) create(ginCtx *gin.Context) {
	var body CreateAuctionBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	a, err := h.svc.CreateAuction(ginCtx.Request.Context(),
		body.SellerID, body.BasePrice, body.StartTime.UTC(), body.EndTime.UTC())
	if err != nil {
		ginCtx.JSON(statusFor(err), &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusCreated, a)
}

func (h *Handler) info(ginCtx *gin.Context) {
	id, err := uuid.Parse(ginCtx.Param("id"))
	if err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: "invalid auction id"})
		return
	}
	a, err := h.svc.GetAuction(ginCtx.Request.Context(), id)
	if err != nil {
		ginCtx.JSON(statusFor(err), &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, a)
}

func (h *Handler) list(ginCtx *gin.Context) {
	var q ListAuctionsQuery
	if err := ginCtx.ShouldBindQuery(&q); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.svc.ListAuctions(ginCtx.Request.Context(), domain.Status(q.Status), q.Limit, q.Offset)
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, out)
}

// remove is the administrative delete; the sweeper never removes records.
func (h *Handler) remove(ginCtx *gin.Context) {
	id, err := uuid.Parse(ginCtx.Param("id"))
	if err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: "invalid auction id"})
		return
	}
	if err := h.svc.DeleteAuction(ginCtx.Request.Context(), id); err != nil {
		ginCtx.JSON(statusFor(err), &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.Status(http.StatusNoContent)
}

// bid places a bid; the response carries the updated auction so clients
// can render the new highest bid without a second round trip.
func (h *Handler) bid(ginCtx *gin.Context) {
	id, err := uuid.Parse(ginCtx.Param("id"))
	if err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: "invalid auction id"})
		return
	}
	var body PlaceBidBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	a, err := h.svc.PlaceBid(ginCtx.Request.Context(), id, body.BidderID, body.Amount)
	if err != nil {
		ginCtx.JSON(statusFor(err), &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, a)
}

// statusFor keeps every rejection kind distinguishable to clients.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConcurrentBid):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInactiveAuction),
		errors.Is(err, domain.ErrBelowBasePrice),
		errors.Is(err, domain.ErrBidTooLow),
		errors.Is(err, domain.ErrStartNotFuture),
		errors.Is(err, domain.ErrEndNotAfterStart),
		errors.Is(err, domain.ErrBasePriceInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
