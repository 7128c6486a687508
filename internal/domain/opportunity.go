package domain

// OpportunityStatus is the lifecycle state of a detected arbitrage candidate.
type OpportunityStatus string

// Opportunity lifecycle states. An opportunity leaves the stream implicitly
// when a trade is created for it or after the expiry sweep removes it.
const (
	OpportunityDetected  OpportunityStatus = "detected"
	OpportunityAnalyzing OpportunityStatus = "analyzing"
	OpportunityExecuting OpportunityStatus = "executing"
)

// Opportunity is a detected, not-yet-executed arbitrage candidate.
type Opportunity struct {
	ID               string            `json:"id"`
	Timestamp        int64             `json:"timestamp"` // unix ms
	Pair             string            `json:"pair"`      // e.g. "WETH/USDC"
	CexPrice         float64           `json:"cexPrice"`
	DexPrice         float64           `json:"dexPrice"`
	SpreadPercent    float64           `json:"spreadPercent"`
	EstimatedProfit  float64           `json:"estimatedProfit"`
	EstimatedGasCost float64           `json:"estimatedGasCost"`
	NetProfit        float64           `json:"netProfit"`
	Confidence       float64           `json:"confidence"` // [0,1]
	Status           OpportunityStatus `json:"status"`
	RiskScore        float64           `json:"riskScore"` // [0,1]
	Reasoning        string            `json:"reasoning,omitempty"`
}
