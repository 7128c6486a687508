package storage

import (
	"context"

	"arb-console/internal/domain"
)

// TradeHistoryStore archives executed trades beyond the in-memory window.
type TradeHistoryStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// Upsert inserts the trade or replaces the stored row for its id.
	// Completion events arrive against trades persisted while pending.
	Upsert(ctx context.Context, t *domain.Trade) error

	// GetByID retrieves a trade by its id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Trade, error)

	// GetByTimeRange retrieves trades executed within [start, end] ms
	// (inclusive), ordered by timestamp DESC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Trade, error)

	// GetByPair retrieves all trades for a pair, ordered by timestamp DESC.
	GetByPair(ctx context.Context, pair string) ([]*domain.Trade, error)

	// GetRecent retrieves the most recent trades, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.Trade, error)
}

// PortfolioSnapshotStore persists portfolio valuation history for charting.
type PortfolioSnapshotStore interface {
	// InsertBulk adds multiple snapshots. Fails the batch on a duplicate
	// timestamp.
	InsertBulk(ctx context.Context, snapshots []*domain.PortfolioSnapshot) error

	// GetByTimeRange retrieves snapshots within [start, end] ms (inclusive),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.PortfolioSnapshot, error)

	// Latest returns the most recent snapshot. Returns ErrNotFound when the
	// store is empty.
	Latest(ctx context.Context) (*domain.PortfolioSnapshot, error)
}
