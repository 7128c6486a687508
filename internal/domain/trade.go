package domain

// TradeStatus is the execution state of a trade.
type TradeStatus string

// Trade states. Success and failed are terminal: a trade in either state
// never transitions again.
const (
	TradeStatusPending TradeStatus = "pending"
	TradeStatusSuccess TradeStatus = "success"
	TradeStatusFailed  TradeStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s TradeStatus) IsTerminal() bool {
	return s == TradeStatusSuccess || s == TradeStatusFailed
}

// TradeDirection is the leg ordering of an arbitrage execution.
type TradeDirection string

// Trade directions.
const (
	DirectionCexToDex TradeDirection = "cex-to-dex"
	DirectionDexToCex TradeDirection = "dex-to-cex"
)

// Trade is a submitted or completed arbitrage execution record.
type Trade struct {
	ID              string         `json:"id"`
	OpportunityID   string         `json:"opportunityId,omitempty"`
	Timestamp       int64          `json:"timestamp"` // unix ms
	Pair            string         `json:"pair"`
	Direction       TradeDirection `json:"direction"`
	AmountIn        float64        `json:"amountIn"`
	TokenIn         string         `json:"tokenIn"`
	AmountOut       float64        `json:"amountOut"`
	TokenOut        string         `json:"tokenOut"`
	Profit          float64        `json:"profit"`
	ProfitPercent   float64        `json:"profitPercent"`
	GasCost         float64        `json:"gasCost"`
	ExecutionTimeMs int64          `json:"executionTimeMs"`
	Slippage        float64        `json:"slippage"`
	Status          TradeStatus    `json:"status"`
	TxHash          string         `json:"txHash,omitempty"`
	AIConfidence    float64        `json:"aiConfidence"`
	AIReasoning     string         `json:"aiReasoning,omitempty"`
}

// TradePatch is a partial trade update merged by id. Nil fields are left
// untouched by the merge.
type TradePatch struct {
	Status          *TradeStatus `json:"status,omitempty"`
	AmountOut       *float64     `json:"amountOut,omitempty"`
	Profit          *float64     `json:"profit,omitempty"`
	ProfitPercent   *float64     `json:"profitPercent,omitempty"`
	GasCost         *float64     `json:"gasCost,omitempty"`
	ExecutionTimeMs *int64       `json:"executionTimeMs,omitempty"`
	Slippage        *float64     `json:"slippage,omitempty"`
	TxHash          *string      `json:"txHash,omitempty"`
}

// Apply merges non-nil patch fields into the trade.
func (p *TradePatch) Apply(t *Trade) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.AmountOut != nil {
		t.AmountOut = *p.AmountOut
	}
	if p.Profit != nil {
		t.Profit = *p.Profit
	}
	if p.ProfitPercent != nil {
		t.ProfitPercent = *p.ProfitPercent
	}
	if p.GasCost != nil {
		t.GasCost = *p.GasCost
	}
	if p.ExecutionTimeMs != nil {
		t.ExecutionTimeMs = *p.ExecutionTimeMs
	}
	if p.Slippage != nil {
		t.Slippage = *p.Slippage
	}
	if p.TxHash != nil {
		t.TxHash = *p.TxHash
	}
}
