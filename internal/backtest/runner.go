package backtest

import (
	"context"
	"fmt"
	"time"

	"arb-console/internal/domain"
	"arb-console/internal/storage"
)

// Runner loads archived trades and feeds them through the engine. The
// configured delay simulates analysis latency so the dashboard can show a
// running state.
type Runner struct {
	history storage.TradeHistoryStore
	delay   time.Duration
}

// NewRunner creates a backtest runner.
func NewRunner(history storage.TradeHistoryStore, delay time.Duration) *Runner {
	return &Runner{history: history, delay: delay}
}

// Run evaluates the strategy against trades within [from, to] ms.
func (r *Runner) Run(ctx context.Context, strategy domain.Strategy, from, to int64) (*Results, error) {
	trades, err := r.history.GetByTimeRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	return r.replay(ctx, strategy, trades)
}

// RunAll evaluates the strategy against the full archive.
func (r *Runner) RunAll(ctx context.Context, strategy domain.Strategy) (*Results, error) {
	trades, err := r.history.GetRecent(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	return r.replay(ctx, strategy, trades)
}

func (r *Runner) replay(ctx context.Context, strategy domain.Strategy, trades []*domain.Trade) (*Results, error) {
	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}
	}

	engine := NewEngine(strategy)

	// Stores return newest first; replay runs oldest first.
	for i := len(trades) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := engine.OnTrade(ctx, trades[i]); err != nil {
			return nil, fmt.Errorf("replay trade %s: %w", trades[i].ID, err)
		}
	}

	return engine.Results(), nil
}
