package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"auctionhousego/internal/events"
)

// subscriptionManager guarantees exactly one Redis subscription per
// auction channel, no matter how many websocket clients join the room.
type subscriptionManager struct {
	rdb  *redis.Client
	hub  *Hub
	mu   sync.Mutex
	subs map[uuid.UUID]*subEntry
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, hub *Hub) *subscriptionManager {
	return &subscriptionManager{
		rdb:  rdb,
		hub:  hub,
		subs: make(map[uuid.UUID]*subEntry),
	}
}

// Subscribe ensures the process listens on the auction's channel;
// subsequent calls for the same auction only bump the ref-counter.
func (sm *subscriptionManager) Subscribe(auctionID uuid.UUID) {
	sm.mu.Lock()
	if e, ok := sm.subs[auctionID]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	// first consumer: create the Redis SUB and fan-out loop
	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, events.Channel(auctionID))

	sm.subs[auctionID] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go func() {
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok {
					return
				}

				// wrap the raw broker payload into the WS envelope so
				// server- and client-initiated messages share one contract
				wrapped, err := wrapAuctionEvent(m.Payload)
				if err != nil {
					zap.L().Warn("ws.wrap_event_failed", zap.Error(err))
					wrapped = []byte(m.Payload)
				}

				sm.hub.Broadcast(auctionID, wrapped)
			}
		}
	}()
}

// Unsubscribe decrements the ref-counter and tears the subscription down
// when the last client leaves the room.
func (sm *subscriptionManager) Unsubscribe(auctionID uuid.UUID) {
	sm.mu.Lock()
	e, ok := sm.subs[auctionID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, auctionID)
	sm.mu.Unlock()

	// outside the lock: stop the fan-out goroutine
	e.cancel()
}

// wrapAuctionEvent turns {"event":"bid",...} into
// {"event":"auctions/bid","body":{...}}.
func wrapAuctionEvent(payload string) ([]byte, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, err
	}

	evt, _ := raw["event"].(string)
	if evt == "" {
		evt = "unknown"
	}
	delete(raw, "event")

	env := map[string]interface{}{
		"event": "auctions/" + evt,
		"body":  raw,
	}
	return json.Marshal(env)
}
