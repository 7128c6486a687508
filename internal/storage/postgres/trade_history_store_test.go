package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"arb-console/internal/domain"
	"arb-console/internal/storage"
	pgstore "arb-console/internal/storage/postgres"
)

func sampleTrade(id string, ts int64, pair string) *domain.Trade {
	return &domain.Trade{
		ID:            id,
		OpportunityID: "opp-" + id,
		Timestamp:     ts,
		Pair:          pair,
		Direction:     domain.DirectionCexToDex,
		AmountIn:      1000,
		TokenIn:       "USDC",
		AmountOut:     0.42,
		TokenOut:      "ETH",
		Profit:        3.2,
		ProfitPercent: 0.32,
		GasCost:       0.8,
		Slippage:      0.001,
		Status:        domain.TradeStatusPending,
		AIConfidence:  0.91,
		AIReasoning:   "spread above threshold",
	}
}

func TestTradeHistoryStorePostgres(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewTradeHistoryStore(pool)
	ctx := context.Background()

	t.Run("insert and get", func(t *testing.T) {
		trade := sampleTrade("pg-t1", 1000, "ETH/USDC")
		require.NoError(t, store.Insert(ctx, trade))

		got, err := store.GetByID(ctx, "pg-t1")
		require.NoError(t, err)
		require.Equal(t, trade.Pair, got.Pair)
		require.Equal(t, trade.Profit, got.Profit)
		require.Equal(t, trade.Status, got.Status)
	})

	t.Run("duplicate insert", func(t *testing.T) {
		trade := sampleTrade("pg-dup", 1000, "ETH/USDC")
		require.NoError(t, store.Insert(ctx, trade))
		require.ErrorIs(t, store.Insert(ctx, trade), storage.ErrDuplicateKey)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.GetByID(ctx, "missing")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		trade := sampleTrade("pg-up", 2000, "WBTC/USDC")
		require.NoError(t, store.Upsert(ctx, trade))

		trade.Status = domain.TradeStatusSuccess
		trade.TxHash = "0xabc"
		trade.Profit = 7.7
		require.NoError(t, store.Upsert(ctx, trade))

		got, err := store.GetByID(ctx, "pg-up")
		require.NoError(t, err)
		require.Equal(t, domain.TradeStatusSuccess, got.Status)
		require.Equal(t, "0xabc", got.TxHash)
		require.Equal(t, 7.7, got.Profit)
	})

	t.Run("time range descending", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, sampleTrade("pg-r1", 10_000, "ETH/USDC")))
		require.NoError(t, store.Insert(ctx, sampleTrade("pg-r2", 20_000, "ETH/USDC")))
		require.NoError(t, store.Insert(ctx, sampleTrade("pg-r3", 30_000, "ETH/USDC")))

		got, err := store.GetByTimeRange(ctx, 10_000, 20_000)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "pg-r2", got[0].ID)
		require.Equal(t, "pg-r1", got[1].ID)
	})

	t.Run("by pair", func(t *testing.T) {
		require.NoError(t, store.Insert(ctx, sampleTrade("pg-p1", 40_000, "ARB/USDC")))
		require.NoError(t, store.Insert(ctx, sampleTrade("pg-p2", 50_000, "ARB/USDC")))

		got, err := store.GetByPair(ctx, "ARB/USDC")
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "pg-p2", got[0].ID)
	})

	t.Run("recent with limit", func(t *testing.T) {
		got, err := store.GetRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.GreaterOrEqual(t, got[0].Timestamp, got[1].Timestamp)
	})
}
