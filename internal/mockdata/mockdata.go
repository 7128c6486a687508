// Package mockdata generates plausible demo state so the console renders a
// populated dashboard before the agent stream delivers anything. Demo data
// is applied once and is always superseded by live events.
package mockdata

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"arb-console/internal/domain"
)

var pairs = []string{"ETH/USDC", "WBTC/USDC", "ARB/USDC", "OP/USDC", "LINK/USDC"}

// Generator produces demo dashboard state.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a generator. A fixed seed yields reproducible data.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// WithClock sets a custom clock for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// AgentStatus produces a paused agent with moderate risk limits.
func (g *Generator) AgentStatus() domain.AgentStatus {
	return domain.AgentStatus{
		State:            domain.AgentStatePaused,
		TotalTrades:      47,
		SuccessfulTrades: 41,
		SkippedTrades:    128,
		TotalProfit:      312.45,
		RiskLimits: domain.RiskLimits{
			MinProfitThreshold: 0.005,
			MaxPositionSize:    5000,
			MaxDailyLoss:       0.05,
			MaxExposure:        0.5,
			StopLossPercent:    0.05,
			SlippageTolerance:  0.005,
		},
		LastTradeAt: g.now().Add(-7 * time.Minute).UnixMilli(),
	}
}

// Opportunities produces n detected opportunities, newest first.
func (g *Generator) Opportunities(n int) []domain.Opportunity {
	out := make([]domain.Opportunity, 0, n)
	base := g.now().UnixMilli()

	for i := 0; i < n; i++ {
		pair := pairs[g.rng.Intn(len(pairs))]
		cex := 1000 + g.rng.Float64()*2000
		spread := 0.1 + g.rng.Float64()*0.8
		dex := cex * (1 + spread/100)
		gross := 5 + g.rng.Float64()*45
		gas := 0.5 + g.rng.Float64()*2.5

		out = append(out, domain.Opportunity{
			ID:               uuid.NewString(),
			Timestamp:        base - int64(i)*15_000,
			Pair:             pair,
			CexPrice:         cex,
			DexPrice:         dex,
			SpreadPercent:    spread,
			EstimatedProfit:  gross,
			EstimatedGasCost: gas,
			NetProfit:        gross - gas,
			Confidence:       0.5 + g.rng.Float64()*0.5,
			Status:           domain.OpportunityDetected,
			RiskScore:        g.rng.Float64() * 0.6,
			Reasoning:        fmt.Sprintf("%s spread %.2f%% above execution threshold", pair, spread),
		})
	}
	return out
}

// Trades produces n completed trades, newest first.
func (g *Generator) Trades(n int) []domain.Trade {
	out := make([]domain.Trade, 0, n)
	base := g.now().UnixMilli()

	for i := 0; i < n; i++ {
		pair := pairs[g.rng.Intn(len(pairs))]
		amountIn := 500 + g.rng.Float64()*4500
		profit := -10 + g.rng.Float64()*60
		status := domain.TradeStatusSuccess
		if profit < 0 {
			status = domain.TradeStatusFailed
		}

		dir := domain.DirectionCexToDex
		if g.rng.Intn(2) == 1 {
			dir = domain.DirectionDexToCex
		}

		out = append(out, domain.Trade{
			ID:              uuid.NewString(),
			OpportunityID:   uuid.NewString(),
			Timestamp:       base - int64(i+1)*90_000,
			Pair:            pair,
			Direction:       dir,
			AmountIn:        amountIn,
			TokenIn:         "USDC",
			AmountOut:       amountIn * (1 + profit/amountIn),
			TokenOut:        "USDC",
			Profit:          profit,
			ProfitPercent:   profit / amountIn * 100,
			GasCost:         0.8 + g.rng.Float64()*2,
			ExecutionTimeMs: 800 + int64(g.rng.Intn(3200)),
			Slippage:        g.rng.Float64() * 0.004,
			Status:          status,
			TxHash:          fmt.Sprintf("0x%032x", g.rng.Uint64()),
			AIConfidence:    0.6 + g.rng.Float64()*0.4,
			AIReasoning:     "historical spread pattern matched",
		})
	}
	return out
}

// Portfolio produces a valuation snapshot consistent with the trade history.
func (g *Generator) Portfolio() domain.Portfolio {
	total := 12_000 + g.rng.Float64()*3000
	vault := total * 0.7

	return domain.Portfolio{
		TotalValue:   total,
		VaultBalance: vault,
		Daily:        domain.PnLWindow{Absolute: 85.2, Percent: 0.72},
		Weekly:       domain.PnLWindow{Absolute: 310.9, Percent: 2.65},
		Monthly:      domain.PnLWindow{Absolute: 1120.4, Percent: 10.2},
		Positions: []domain.Position{
			{Token: "USDC", Amount: vault, Value: vault, Allocation: 0.7},
			{Token: "ETH", Amount: (total - vault) / 2500, Value: total - vault, Allocation: 0.3},
		},
		UpdatedAt: g.now().UnixMilli(),
	}
}

// Insights produces aggregate AI decisioning numbers.
func (g *Generator) Insights() domain.AIInsights {
	return domain.AIInsights{
		TotalDecisions:    175,
		Approved:          47,
		Rejected:          128,
		AverageConfidence: 0.78,
		TopReasons: []string{
			"spread below net profitability",
			"gas spike during window",
			"orderbook depth insufficient",
		},
		UpdatedAt: g.now().UnixMilli(),
	}
}
