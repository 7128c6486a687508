// Package backtest replays archived trades through a strategy's risk
// parameters to estimate how the strategy would have performed.
package backtest

import (
	"context"

	"arb-console/internal/domain"
)

// Decision records the engine's verdict for one historical trade.
type Decision struct {
	TradeID string  `json:"tradeId"`
	Taken   bool    `json:"taken"`
	Reason  string  `json:"reason,omitempty"`
	Profit  float64 `json:"profit"`
}

// Results holds backtest output.
type Results struct {
	StrategyID           string     `json:"strategyId"`
	StrategyName         string     `json:"strategyName"`
	TradesEvaluated      int        `json:"tradesEvaluated"`
	TradesTaken          int        `json:"tradesTaken"`
	Wins                 int        `json:"wins"`
	Losses               int        `json:"losses"`
	WinRate              float64    `json:"winRate"` // [0,1]
	NetProfit            float64    `json:"netProfit"`
	MaxDrawdown          float64    `json:"maxDrawdown"`
	MaxConsecutiveLosses int        `json:"maxConsecutiveLosses"`
	Decisions            []Decision `json:"decisions"`
}

// Engine evaluates one strategy against a trade sequence.
type Engine struct {
	strategy domain.Strategy
	results  *Results

	consecutiveLosses int
	equity            float64
	peakEquity        float64
}

// NewEngine creates a backtest engine for the given strategy.
func NewEngine(strategy domain.Strategy) *Engine {
	return &Engine{
		strategy: strategy,
		results: &Results{
			StrategyID:   strategy.ID,
			StrategyName: strategy.Name,
			Decisions:    make([]Decision, 0),
		},
	}
}

// OnTrade processes one historical trade, oldest first.
func (e *Engine) OnTrade(_ context.Context, t *domain.Trade) error {
	e.results.TradesEvaluated++

	if reason, skip := e.wouldSkip(t); skip {
		e.results.Decisions = append(e.results.Decisions, Decision{
			TradeID: t.ID,
			Taken:   false,
			Reason:  reason,
		})
		return nil
	}

	profit := t.Profit

	// Stop loss caps the downside the strategy would have accepted.
	if e.strategy.StopLossPercent > 0 && t.AmountIn > 0 {
		maxLoss := -t.AmountIn * e.strategy.StopLossPercent
		if profit < maxLoss {
			profit = maxLoss
		}
	}

	e.results.TradesTaken++
	e.results.NetProfit += profit
	if profit >= 0 {
		e.results.Wins++
		e.consecutiveLosses = 0
	} else {
		e.results.Losses++
		e.consecutiveLosses++
		if e.consecutiveLosses > e.results.MaxConsecutiveLosses {
			e.results.MaxConsecutiveLosses = e.consecutiveLosses
		}
	}

	e.equity += profit
	if e.equity > e.peakEquity {
		e.peakEquity = e.equity
	}
	if dd := e.peakEquity - e.equity; dd > e.results.MaxDrawdown {
		e.results.MaxDrawdown = dd
	}

	e.results.Decisions = append(e.results.Decisions, Decision{
		TradeID: t.ID,
		Taken:   true,
		Profit:  profit,
	})
	return nil
}

// wouldSkip applies the strategy's entry gates to a historical trade.
func (e *Engine) wouldSkip(t *domain.Trade) (string, bool) {
	if e.strategy.MaxConsecutiveLosses > 0 && e.consecutiveLosses >= e.strategy.MaxConsecutiveLosses {
		return "consecutive loss limit reached", true
	}
	if e.strategy.MaxPositionSize > 0 && t.AmountIn > e.strategy.MaxPositionSize {
		return "position above size limit", true
	}
	if t.AmountIn > 0 && e.strategy.MinProfitThreshold > 0 {
		expected := t.ProfitPercent / 100
		if expected < e.strategy.MinProfitThreshold && t.Status == domain.TradeStatusSuccess {
			return "expected return below threshold", true
		}
	}
	if e.strategy.SlippageTolerance > 0 && t.Slippage > e.strategy.SlippageTolerance {
		return "slippage above tolerance", true
	}
	return "", false
}

// Results finalizes derived ratios and returns the accumulated output.
func (e *Engine) Results() *Results {
	if e.results.TradesTaken > 0 {
		e.results.WinRate = float64(e.results.Wins) / float64(e.results.TradesTaken)
	}
	return e.results
}
