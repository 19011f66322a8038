package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"auctionhousego/internal/domain"
)

// Store persists auctions in Postgres. Each auction row carries a version
// counter; bid appends are conditioned on it so two concurrent bids can
// never both be admitted against the same stale highest-bid value.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

const auctionCols = `id, seller_id, base_price, start_time, end_time,
                     status, current_highest_bid, winner, version, created_at, updated_at`

func (s *Store) CreateAuction(ctx context.Context, a *domain.Auction) error {
	const q = `
	INSERT INTO auctions (` + auctionCols + `)
	     VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.SellerID, a.BasePrice, a.StartTime, a.EndTime,
		a.Status, a.CurrentHighestBid, winnerArg(a.Winner), a.Version,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert auction: %w", err)
	}
	return nil
}

// GetAuction loads one auction together with its full bid history,
// insertion-ordered.
func (s *Store) GetAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	const q = `SELECT ` + auctionCols + ` FROM auctions WHERE id = $1`
	a, err := scanAuction(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if a.Bids, err = s.loadBids(ctx, id); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) ListAuctions(ctx context.Context, status domain.Status, limit, offset int) ([]domain.Auction, error) {
	if limit == 0 {
		limit = 10
	}
	var (
		rows *sql.Rows
		err  error
	)
	base := `SELECT ` + auctionCols + ` FROM auctions`
	switch status {
	case domain.StatusUpcoming, domain.StatusActive, domain.StatusEnded:
		rows, err = s.db.QueryContext(ctx, base+` WHERE status = $1 ORDER BY end_time DESC LIMIT $2 OFFSET $3`,
			status, limit, offset)
	default:
		rows, err = s.db.QueryContext(ctx, base+` ORDER BY end_time DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]domain.Auction, 0, limit)
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// DeleteAuction removes an auction and, via cascade, its bids. Explicit
// administrative action; the sweeper never deletes.
func (s *Store) DeleteAuction(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM auctions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus persists a recomputed status. Conditioned on the previously
// observed status so a concurrent writer's forward transition is never
// overwritten; losing that race is not an error.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status, now time.Time) error {
	const q = `
	UPDATE auctions SET status = $3, updated_at = $4
	 WHERE id = $1 AND status = $2`
	_, err := s.db.ExecContext(ctx, q, id, from, to, now)
	return err
}

// AppendBid admits one bid atomically: the highest-bid watermark is raised
// only if the row still carries the version the caller read and is still
// active, and the bid row is inserted in the same transaction. A conflict
// surfaces as domain.ErrConcurrentBid so the caller can retry against
// fresh state.
func (s *Store) AppendBid(ctx context.Context, id uuid.UUID, b domain.Bid, version int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const casQ = `
	UPDATE auctions
	   SET current_highest_bid = $2, version = version + 1, updated_at = $3
	 WHERE id = $1 AND version = $4 AND status = 'active'`
	res, err := tx.ExecContext(ctx, casQ, id, b.Amount, b.PlacedAt, version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConcurrentBid
	}

	const insQ = `
	INSERT INTO bids (auction_id, bidder_id, amount, placed_at)
	     VALUES ($1, $2, $3, $4)`
	if _, err = tx.ExecContext(ctx, insQ, id, b.BidderID, b.Amount, b.PlacedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkEnded closes every auction whose window has elapsed, whatever its
// stored status. Returns the number of rows transitioned.
func (s *Store) MarkEnded(ctx context.Context, now time.Time) (int64, error) {
	const q = `
	UPDATE auctions SET status = 'ended', updated_at = $1
	 WHERE status <> 'ended' AND end_time <= $1`
	res, err := s.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkActive opens every upcoming auction whose start time has passed.
// Runs after MarkEnded, so fully-elapsed windows are already closed and
// can not be resurrected here.
func (s *Store) MarkActive(ctx context.Context, now time.Time) (int64, error) {
	const q = `
	UPDATE auctions SET status = 'active', updated_at = $1
	 WHERE status = 'upcoming' AND start_time <= $1`
	res, err := s.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListEndedUnsettled returns ended auctions that still need a winner,
// bids included.
func (s *Store) ListEndedUnsettled(ctx context.Context) ([]domain.Auction, error) {
	const q = `
	SELECT ` + auctionCols + `
	  FROM auctions a
	 WHERE status = 'ended' AND winner IS NULL
	   AND EXISTS (SELECT 1 FROM bids b WHERE b.auction_id = a.id)
	 ORDER BY end_time`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Bids, err = s.loadBids(ctx, list[i].ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// SetWinner records a settlement outcome. Guarded on winner IS NULL so
// re-running settlement for an already-settled auction is a no-op.
func (s *Store) SetWinner(ctx context.Context, id uuid.UUID, winner uuid.UUID, amount decimal.Decimal, now time.Time) error {
	const q = `
	UPDATE auctions
	   SET winner = $2, current_highest_bid = $3, updated_at = $4
	 WHERE id = $1 AND status = 'ended' AND winner IS NULL`
	_, err := s.db.ExecContext(ctx, q, id, winner, amount, now)
	return err
}

func (s *Store) loadBids(ctx context.Context, id uuid.UUID) ([]domain.Bid, error) {
	const q = `
	SELECT bidder_id, amount, placed_at
	  FROM bids WHERE auction_id = $1 ORDER BY placed_at, id`
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(&b.BidderID, &b.Amount, &b.PlacedAt); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	a := &domain.Auction{}
	var winner uuid.NullUUID
	if err := row.Scan(&a.ID, &a.SellerID, &a.BasePrice, &a.StartTime, &a.EndTime,
		&a.Status, &a.CurrentHighestBid, &winner, &a.Version,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if winner.Valid {
		w := winner.UUID
		a.Winner = &w
	}
	return a, nil
}

func winnerArg(w *uuid.UUID) any {
	if w == nil {
		return nil
	}
	return *w
}
