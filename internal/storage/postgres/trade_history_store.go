package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"arb-console/internal/domain"
	"arb-console/internal/storage"
)

// TradeHistoryStore implements storage.TradeHistoryStore using PostgreSQL.
type TradeHistoryStore struct {
	pool *Pool
}

// NewTradeHistoryStore creates a new TradeHistoryStore.
func NewTradeHistoryStore(pool *Pool) *TradeHistoryStore {
	return &TradeHistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeHistoryStore = (*TradeHistoryStore)(nil)

const tradeColumns = `
	id, opportunity_id, ts, pair, direction,
	amount_in, token_in, amount_out, token_out,
	profit, profit_percent, gas_cost, execution_time_ms, slippage,
	status, tx_hash, ai_confidence, ai_reasoning
`

// Insert adds a new trade. Returns ErrDuplicateKey if the id exists.
func (s *TradeHistoryStore) Insert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_history (` + tradeColumns + `)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.OpportunityID, t.Timestamp, t.Pair, t.Direction,
		t.AmountIn, t.TokenIn, t.AmountOut, t.TokenOut,
		t.Profit, t.ProfitPercent, t.GasCost, t.ExecutionTimeMs, t.Slippage,
		t.Status, t.TxHash, t.AIConfidence, t.AIReasoning,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// Upsert inserts the trade or replaces the stored row for its id.
func (s *TradeHistoryStore) Upsert(ctx context.Context, t *domain.Trade) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_history (` + tradeColumns + `)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17, $18
		)
		ON CONFLICT (id) DO UPDATE SET
			opportunity_id = EXCLUDED.opportunity_id,
			ts = EXCLUDED.ts,
			pair = EXCLUDED.pair,
			direction = EXCLUDED.direction,
			amount_in = EXCLUDED.amount_in,
			token_in = EXCLUDED.token_in,
			amount_out = EXCLUDED.amount_out,
			token_out = EXCLUDED.token_out,
			profit = EXCLUDED.profit,
			profit_percent = EXCLUDED.profit_percent,
			gas_cost = EXCLUDED.gas_cost,
			execution_time_ms = EXCLUDED.execution_time_ms,
			slippage = EXCLUDED.slippage,
			status = EXCLUDED.status,
			tx_hash = EXCLUDED.tx_hash,
			ai_confidence = EXCLUDED.ai_confidence,
			ai_reasoning = EXCLUDED.ai_reasoning
	`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.OpportunityID, t.Timestamp, t.Pair, t.Direction,
		t.AmountIn, t.TokenIn, t.AmountOut, t.TokenOut,
		t.Profit, t.ProfitPercent, t.GasCost, t.ExecutionTimeMs, t.Slippage,
		t.Status, t.TxHash, t.AIConfidence, t.AIReasoning,
	)
	if err != nil {
		return fmt.Errorf("upsert trade: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its id. Returns ErrNotFound if not exists.
func (s *TradeHistoryStore) GetByID(ctx context.Context, id string) (*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade_history WHERE id = $1`

	row := s.pool.QueryRow(ctx, query, id)
	t, err := scanTrade(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetByTimeRange retrieves trades within [start, end] ms, ordered by timestamp DESC.
func (s *TradeHistoryStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trade_history
		WHERE ts >= $1 AND ts <= $2
		ORDER BY ts DESC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query trades by time range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetByPair retrieves all trades for a pair, ordered by timestamp DESC.
func (s *TradeHistoryStore) GetByPair(ctx context.Context, pair string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trade_history
		WHERE pair = $1
		ORDER BY ts DESC
	`

	rows, err := s.pool.Query(ctx, query, pair)
	if err != nil {
		return nil, fmt.Errorf("query trades by pair: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetRecent retrieves the most recent trades, newest first.
func (s *TradeHistoryStore) GetRecent(ctx context.Context, limit int) ([]*domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade_history ORDER BY ts DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrade scans a single trade row.
func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	err := row.Scan(
		&t.ID, &t.OpportunityID, &t.Timestamp, &t.Pair, &t.Direction,
		&t.AmountIn, &t.TokenIn, &t.AmountOut, &t.TokenOut,
		&t.Profit, &t.ProfitPercent, &t.GasCost, &t.ExecutionTimeMs, &t.Slippage,
		&t.Status, &t.TxHash, &t.AIConfidence, &t.AIReasoning,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// scanTrades scans all trade rows.
func scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var result []*domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return result, nil
}
