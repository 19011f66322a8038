package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	bidder := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rdc, mock := redismock.NewClientMock()
	ev := NewBidPlaced(bidder, decimal.NewFromInt(100), at)
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	mock.ExpectPublish("auc:"+id.String()+":events", payload).SetVal(1)
	Publish(ctx, rdc, id, ev)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPublishNilClientIsNoop(t *testing.T) {
	Publish(context.Background(), nil, uuid.New(), NewStatusChanged("ended", time.Now()))
}

func TestEventShapes(t *testing.T) {
	winner := uuid.New()
	b, err := json.Marshal(NewAuctionSettled(winner, decimal.NewFromInt(150)))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "settled", m["event"])
	assert.Equal(t, winner.String(), m["winner"])
}
