package domain

// AIInsights is the agent's aggregated decisioning summary, replaced
// wholesale on every ai:insights event. Observability only: nothing in the
// stores derives from it.
type AIInsights struct {
	TotalDecisions    int      `json:"totalDecisions"`
	Approved          int      `json:"approved"`
	Rejected          int      `json:"rejected"`
	AverageConfidence float64  `json:"averageConfidence"` // [0,1]
	TopReasons        []string `json:"topReasons,omitempty"`
	UpdatedAt         int64    `json:"updatedAt"` // unix ms
}

// AIDecision is a single decision event from the agent. Notification only;
// it causes no store mutation.
type AIDecision struct {
	OpportunityID string  `json:"opportunityId"`
	ShouldExecute bool    `json:"shouldExecute"`
	Confidence    float64 `json:"confidence"` // [0,1]
	Reasoning     string  `json:"reasoning,omitempty"`
	Timestamp     int64   `json:"timestamp"` // unix ms
}

// SkippedTrade records an opportunity the agent declined to execute.
type SkippedTrade struct {
	OpportunityID string  `json:"opportunityId"`
	Pair          string  `json:"pair"`
	Reason        string  `json:"reason"`
	Confidence    float64 `json:"confidence"`
	Timestamp     int64   `json:"timestamp"` // unix ms
}
