package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Hub keeps client sets per auction.
type Hub struct {
	rooms sync.Map // auction id -> *room
}

func NewHub() *Hub { return &Hub{} }

// Broadcast is called by the Redis subscriber.
func (h *Hub) Broadcast(auctionID uuid.UUID, msg []byte) {
	if v, ok := h.rooms.Load(auctionID); ok {
		v.(*room).broadcast(msg)
	}
}

func (h *Hub) Join(auctionID uuid.UUID, c *clientConn) {
	r, _ := h.rooms.LoadOrStore(auctionID, newRoom())
	r.(*room).add(c)
}

func (h *Hub) Leave(auctionID uuid.UUID, c *clientConn) {
	if v, ok := h.rooms.Load(auctionID); ok {
		v.(*room).remove(c)
	}
}
