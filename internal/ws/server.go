package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	auctionsvc "auctionhousego/internal/services/auction"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 12 * time.Second
	pingPeriod = 3 * time.Second // must be < pongWait
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

type WsServer struct {
	hub        *Hub
	subMgr     *subscriptionManager
	router     *Router
	auctionSvc auctionsvc.IAuctionService
}

func NewWsServer(h *Hub, rdc *redis.Client, auctionSvc auctionsvc.IAuctionService) *WsServer {
	srv := &WsServer{
		hub:        h,
		subMgr:     newSubscriptionManager(rdc, h),
		router:     NewRouter(),
		auctionSvc: auctionSvc,
	}
	srv.registerHandlers()
	return srv
}

// Handle is the gin entry point. Clients connect with
// /ws?auction_id=<uuid>&user_id=<uuid> and immediately get a snapshot,
// then every event the auction's channel carries.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	auctionID, err := uuid.Parse(ginCtx.Query("auction_id"))
	if err != nil {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "auction_id must be a valid uuid"})
		return
	}
	userID, err := uuid.Parse(ginCtx.Query("user_id"))
	if err != nil {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "user_id must be a valid uuid"})
		return
	}

	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(512)

	wsConn := &clientConn{rawConn: rawConn}
	s.hub.Join(auctionID, wsConn)
	s.subMgr.Subscribe(auctionID)

	if err := s.pushInitialSnapshot(ginCtx.Request.Context(), auctionID, wsConn); err != nil &&
		!errors.Is(err, errSnapshotMissing) {
		zap.L().Warn("ws.snapshot", zap.Error(err))
	}

	go s.reader(auctionID, userID, wsConn)
	go s.pinger(wsConn)
}

var errSnapshotMissing = errors.New("auction missing for snapshot")

func (s *WsServer) registerHandlers() {
	Register(
		s.router,
		"auctions/bid",
		func(ctx context.Context, cc *ConnContext, req BidRequest) (AckBody, error) {
			if !req.Amount.IsPositive() {
				return AckBody{}, errors.New("invalid_amount")
			}
			_, err := s.auctionSvc.PlaceBid(ctx, cc.AuctionID, cc.UserID, req.Amount)
			return AckBody{}, err
		},
	)
}

func (s *WsServer) pushInitialSnapshot(ctx context.Context, id uuid.UUID, conn *clientConn) error {
	ctx, cancel := context.WithTimeout(ctx, 4*time.Second)
	defer cancel()

	a, err := s.auctionSvc.GetAuction(ctx, id)
	if err != nil {
		return errSnapshotMissing
	}
	return conn.writeJSON(gin.H{
		"event": "auctions/snapshot",
		"body":  a,
	})
}

func (s *WsServer) reader(auctionID, userID uuid.UUID, conn *clientConn) {
	defer func() {
		s.hub.Leave(auctionID, conn)
		s.subMgr.Unsubscribe(auctionID)
	}()

	cc := &ConnContext{AuctionID: auctionID, UserID: userID, Server: s}

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := conn.rawConn.ReadJSON(&env); err != nil {
			return // client closed or errored
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1900*time.Millisecond)
		res, err := s.router.dispatch(ctx, cc, env)
		cancel()

		if err != nil {
			_ = conn.writeJSON(map[string]any{
				"event": "error",
				"body":  ErrorBody{Error: err.Error()},
			})
			continue
		}

		reply := map[string]any{"event": env.Event + "-ack"}
		if res != nil {
			reply["body"] = res
		}
		_ = conn.writeJSON(reply)
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.write(websocket.PingMessage, nil); err != nil {
			conn.rawConn.Close()
			return
		}
	}
}
