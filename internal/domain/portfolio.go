package domain

// Position is a single token holding inside the portfolio.
type Position struct {
	Token      string  `json:"token"`
	Amount     float64 `json:"amount"`
	Value      float64 `json:"value"`      // quote-currency valuation
	Allocation float64 `json:"allocation"` // fraction of total value, [0,1]
}

// PnLWindow is profit and loss over one fixed window.
type PnLWindow struct {
	Absolute float64 `json:"absolute"`
	Percent  float64 `json:"percent"`
}

// Portfolio is the aggregate valuation snapshot. It is replaced wholesale
// on every portfolio:updated event.
type Portfolio struct {
	TotalValue   float64    `json:"totalValue"`
	VaultBalance float64    `json:"vaultBalance"`
	Daily        PnLWindow  `json:"daily"`
	Weekly       PnLWindow  `json:"weekly"`
	Monthly      PnLWindow  `json:"monthly"`
	Positions    []Position `json:"positions"`
	UpdatedAt    int64      `json:"updatedAt"` // unix ms
}

// PortfolioSnapshot is a point-in-time record of portfolio valuation,
// persisted for historical charting.
type PortfolioSnapshot struct {
	Timestamp       int64   `json:"timestamp"` // unix ms
	TotalValue      float64 `json:"totalValue"`
	VaultBalance    float64 `json:"vaultBalance"`
	DailyPnL        float64 `json:"dailyPnl"`
	DailyPnLPercent float64 `json:"dailyPnlPercent"`
	PositionCount   int     `json:"positionCount"`
}

// Snapshot projects the portfolio into a persistable snapshot row.
func (p *Portfolio) Snapshot() PortfolioSnapshot {
	return PortfolioSnapshot{
		Timestamp:       p.UpdatedAt,
		TotalValue:      p.TotalValue,
		VaultBalance:    p.VaultBalance,
		DailyPnL:        p.Daily.Absolute,
		DailyPnLPercent: p.Daily.Percent,
		PositionCount:   len(p.Positions),
	}
}
