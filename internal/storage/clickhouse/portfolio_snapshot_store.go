package clickhouse

import (
	"context"
	"fmt"

	"arb-console/internal/domain"
	"arb-console/internal/storage"
)

// PortfolioSnapshotStore implements storage.PortfolioSnapshotStore using ClickHouse.
type PortfolioSnapshotStore struct {
	conn *Conn
}

// NewPortfolioSnapshotStore creates a new PortfolioSnapshotStore.
func NewPortfolioSnapshotStore(conn *Conn) *PortfolioSnapshotStore {
	return &PortfolioSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PortfolioSnapshotStore = (*PortfolioSnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails the batch on a duplicate timestamp.
func (s *PortfolioSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.PortfolioSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[snap.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		seen[snap.Timestamp] = struct{}{}
	}

	// MergeTree does not enforce uniqueness; check existing rows explicitly.
	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO portfolio_snapshots (
			timestamp_ms, total_value, vault_balance,
			daily_pnl, daily_pnl_percent, position_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			uint64(snap.Timestamp), snap.TotalValue, snap.VaultBalance,
			snap.DailyPnL, snap.DailyPnLPercent, uint32(snap.PositionCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves snapshots within [start, end] ms, ordered by timestamp ASC.
func (s *PortfolioSnapshotStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.PortfolioSnapshot, error) {
	query := `
		SELECT timestamp_ms, total_value, vault_balance,
		       daily_pnl, daily_pnl_percent, position_count
		FROM portfolio_snapshots FINAL
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query snapshots by time range: %w", err)
	}
	defer rows.Close()

	var result []*domain.PortfolioSnapshot
	for rows.Next() {
		var (
			ts    uint64
			snap  domain.PortfolioSnapshot
			count uint32
		)
		if err := rows.Scan(&ts, &snap.TotalValue, &snap.VaultBalance,
			&snap.DailyPnL, &snap.DailyPnLPercent, &count); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Timestamp = int64(ts)
		snap.PositionCount = int(count)
		result = append(result, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	return result, nil
}

// Latest returns the most recent snapshot. Returns ErrNotFound when empty.
func (s *PortfolioSnapshotStore) Latest(ctx context.Context) (*domain.PortfolioSnapshot, error) {
	query := `
		SELECT timestamp_ms, total_value, vault_balance,
		       daily_pnl, daily_pnl_percent, position_count
		FROM portfolio_snapshots FINAL
		ORDER BY timestamp_ms DESC
		LIMIT 1
	`

	row := s.conn.QueryRow(ctx, query)

	var (
		ts    uint64
		snap  domain.PortfolioSnapshot
		count uint32
	)
	err := row.Scan(&ts, &snap.TotalValue, &snap.VaultBalance,
		&snap.DailyPnL, &snap.DailyPnLPercent, &count)
	if err != nil {
		if isNoRows(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	snap.Timestamp = int64(ts)
	snap.PositionCount = int(count)

	return &snap, nil
}

// exists checks whether a snapshot with the given timestamp is stored.
func (s *PortfolioSnapshotStore) exists(ctx context.Context, timestampMs int64) (bool, error) {
	query := `SELECT count(*) FROM portfolio_snapshots WHERE timestamp_ms = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, uint64(timestampMs)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
