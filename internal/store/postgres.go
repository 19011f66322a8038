package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(host, port, user, pass, database string) (*sql.DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		user, pass, host, port, database,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetConnMaxIdleTime(time.Minute)
	return db, db.Ping()
}

const schema = `
CREATE TABLE IF NOT EXISTS auctions (
    id                   UUID PRIMARY KEY,
    seller_id            UUID NOT NULL,
    base_price           NUMERIC(14,2) NOT NULL,
    start_time           TIMESTAMPTZ NOT NULL,
    end_time             TIMESTAMPTZ NOT NULL,
    status               TEXT NOT NULL DEFAULT 'upcoming',
    current_highest_bid  NUMERIC(14,2) NOT NULL DEFAULT 0,
    winner               UUID,
    version              BIGINT NOT NULL DEFAULT 0,
    created_at           TIMESTAMPTZ NOT NULL,
    updated_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS bids (
    id          BIGSERIAL PRIMARY KEY,
    auction_id  UUID NOT NULL REFERENCES auctions(id) ON DELETE CASCADE,
    bidder_id   UUID NOT NULL,
    amount      NUMERIC(14,2) NOT NULL,
    placed_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS bids_auction_placed_idx ON bids (auction_id, placed_at);
CREATE INDEX IF NOT EXISTS auctions_status_end_idx ON auctions (status, end_time);
`

// EnsureSchema creates the auctions and bids tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
