package domain

// AgentState is the lifecycle state of the remote trading agent.
type AgentState string

// Agent lifecycle states.
const (
	AgentStateActive  AgentState = "active"
	AgentStatePaused  AgentState = "paused"
	AgentStateStopped AgentState = "stopped"
	AgentStateError   AgentState = "error"
)

// RiskLimits is the risk configuration snapshot echoed from the agent.
// Fractional fields are stored in [0,1]; display-layer percent conversion
// happens at the edges, never here.
type RiskLimits struct {
	MinProfitThreshold   float64 `json:"minProfitThreshold"`
	MaxPositionSize      float64 `json:"maxPositionSize"`
	MaxDailyLoss         float64 `json:"maxDailyLoss"`
	MaxExposure          float64 `json:"maxExposure"`
	StopLossPercent      float64 `json:"stopLossPercent"`
	SlippageTolerance    float64 `json:"slippageTolerance"`
	MaxConsecutiveLosses int     `json:"maxConsecutiveLosses"`
	VolatilityThreshold  float64 `json:"volatilityThreshold"`
}

// AgentStatus is the agent's self-reported status. It is replaced wholesale
// on every agent:status event and never mutated locally.
type AgentStatus struct {
	State            AgentState `json:"state"`
	TotalTrades      int        `json:"totalTrades"`
	SuccessfulTrades int        `json:"successfulTrades"`
	SkippedTrades    int        `json:"skippedTrades"`
	TotalProfit      float64    `json:"totalProfit"`
	RiskLimits       RiskLimits `json:"riskLimits"`
	LastTradeAt      int64      `json:"lastTradeAt"` // unix ms, 0 when no trade yet
	Errors           []string   `json:"errors,omitempty"`
}
