package auction

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"auctionhousego/internal/domain"
	"auctionhousego/internal/events"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateAuction(ctx context.Context, a *domain.Auction) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockStore) GetAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Auction), args.Error(1)
}

func (m *mockStore) ListAuctions(ctx context.Context, status domain.Status, limit, offset int) ([]domain.Auction, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Auction), args.Error(1)
}

func (m *mockStore) DeleteAuction(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status, now time.Time) error {
	return m.Called(ctx, id, from, to, now).Error(0)
}

func (m *mockStore) AppendBid(ctx context.Context, id uuid.UUID, b domain.Bid, version int64) error {
	return m.Called(ctx, id, b, version).Error(0)
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, st *mockStore) (*auctionService, redismock.ClientMock) {
	t.Helper()
	rdc, rmock := redismock.NewClientMock()
	svc := NewAuctionService(st, rdc, 3).(*auctionService)
	svc.now = func() time.Time { return testNow }
	return svc, rmock
}

func activeAuction(id uuid.UUID) *domain.Auction {
	return &domain.Auction{
		ID:                id,
		SellerID:          uuid.New(),
		BasePrice:         decimal.NewFromInt(50),
		StartTime:         testNow.Add(-time.Hour),
		EndTime:           testNow.Add(time.Hour),
		Status:            domain.StatusActive,
		CurrentHighestBid: decimal.Zero,
		Version:           2,
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestPlaceBid_Admitted(t *testing.T) {
	ctx := context.Background()
	st := new(mockStore)
	svc, rmock := newService(t, st)

	id := uuid.New()
	bidder := uuid.New()
	amount := decimal.NewFromInt(100)

	st.On("GetAuction", ctx, id).Return(activeAuction(id), nil).Once()
	st.On("AppendBid", ctx, id, domain.Bid{BidderID: bidder, Amount: amount, PlacedAt: testNow}, int64(2)).
		Return(nil).Once()
	rmock.ExpectPublish(events.Channel(id), mustJSON(t, events.NewBidPlaced(bidder, amount, testNow))).SetVal(1)

	a, err := svc.PlaceBid(ctx, id, bidder, amount)
	require.NoError(t, err)
	require.Len(t, a.Bids, 1)
	assert.True(t, a.CurrentHighestBid.Equal(amount))
	st.AssertExpectations(t)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestPlaceBid_NotFound(t *testing.T) {
	ctx := context.Background()
	st := new(mockStore)
	svc, _ := newService(t, st)

	id := uuid.New()
	st.On("GetAuction", ctx, id).Return(nil, domain.ErrNotFound).Once()

	_, err := svc.PlaceBid(ctx, id, uuid.New(), decimal.NewFromInt(100))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaceBid_RejectionsDoNotPersist(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*domain.Auction)
		amount  decimal.Decimal
		wantErr error
	}{
		{"inactive", func(a *domain.Auction) {
			a.Status = domain.StatusEnded
		}, decimal.NewFromInt(100), domain.ErrInactiveAuction},
		{"below base", func(a *domain.Auction) {}, decimal.NewFromInt(40), domain.ErrBelowBasePrice},
		{"not above highest", func(a *domain.Auction) {
			a.CurrentHighestBid = decimal.NewFromInt(100)
		}, decimal.NewFromInt(100), domain.ErrBidTooLow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := new(mockStore)
			svc, _ := newService(t, st)
			a := activeAuction(id)
			tc.mutate(a)
			st.On("GetAuction", ctx, id).Return(a, nil).Once()

			_, err := svc.PlaceBid(ctx, id, uuid.New(), tc.amount)
			assert.ErrorIs(t, err, tc.wantErr)
			st.AssertNotCalled(t, "AppendBid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPlaceBid_PersistsRecomputedStatus(t *testing.T) {
	ctx := context.Background()
	st := new(mockStore)
	svc, rmock := newService(t, st)

	id := uuid.New()
	bidder := uuid.New()
	amount := decimal.NewFromInt(100)

	// stored as upcoming, but the window already opened
	a := activeAuction(id)
	a.Status = domain.StatusUpcoming

	st.On("GetAuction", ctx, id).Return(a, nil).Once()
	st.On("UpdateStatus", ctx, id, domain.StatusUpcoming, domain.StatusActive, testNow).Return(nil).Once()
	st.On("AppendBid", ctx, id, mock.Anything, int64(2)).Return(nil).Once()
	rmock.ExpectPublish(events.Channel(id), mustJSON(t, events.NewStatusChanged("active", testNow))).SetVal(0)
	rmock.ExpectPublish(events.Channel(id), mustJSON(t, events.NewBidPlaced(bidder, amount, testNow))).SetVal(1)

	_, err := svc.PlaceBid(ctx, id, bidder, amount)
	require.NoError(t, err)
	st.AssertExpectations(t)
	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestPlaceBid_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	st := new(mockStore)
	svc, rmock := newService(t, st)

	id := uuid.New()
	bidder := uuid.New()
	amount := decimal.NewFromInt(200)

	first := activeAuction(id)
	st.On("GetAuction", ctx, id).Return(first, nil).Once()
	st.On("AppendBid", ctx, id, mock.Anything, int64(2)).Return(domain.ErrConcurrentBid).Once()

	// fresh state after the lost race: someone bid 150 meanwhile
	second := activeAuction(id)
	second.CurrentHighestBid = decimal.NewFromInt(150)
	second.Version = 3
	st.On("GetAuction", ctx, id).Return(second, nil).Once()
	st.On("AppendBid", ctx, id, mock.Anything, int64(3)).Return(nil).Once()
	rmock.ExpectPublish(events.Channel(id), mustJSON(t, events.NewBidPlaced(bidder, amount, testNow))).SetVal(1)

	a, err := svc.PlaceBid(ctx, id, bidder, amount)
	require.NoError(t, err)
	assert.True(t, a.CurrentHighestBid.Equal(amount))
	st.AssertExpectations(t)
}

func TestPlaceBid_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	st := new(mockStore)
	svc, _ := newService(t, st)

	id := uuid.New()
	st.On("GetAuction", ctx, id).Return(activeAuction(id), nil).Times(3)
	st.On("AppendBid", ctx, id, mock.Anything, int64(2)).Return(domain.ErrConcurrentBid).Times(3)

	_, err := svc.PlaceBid(ctx, id, uuid.New(), decimal.NewFromInt(100))
	assert.ErrorIs(t, err, domain.ErrConcurrentBid)
	st.AssertExpectations(t)
}

func TestCreateAuction(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		st := new(mockStore)
		svc, _ := newService(t, st)
		seller := uuid.New()
		st.On("CreateAuction", ctx, mock.AnythingOfType("*domain.Auction")).Return(nil).Once()

		a, err := svc.CreateAuction(ctx, seller, decimal.NewFromInt(50), testNow.Add(time.Hour), testNow.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, domain.StatusUpcoming, a.Status)
		st.AssertExpectations(t)
	})

	t.Run("invalid window never hits the store", func(t *testing.T) {
		st := new(mockStore)
		svc, _ := newService(t, st)

		_, err := svc.CreateAuction(ctx, uuid.New(), decimal.NewFromInt(50), testNow.Add(2*time.Hour), testNow.Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrEndNotAfterStart)
		st.AssertNotCalled(t, "CreateAuction", mock.Anything, mock.Anything)
	})
}
