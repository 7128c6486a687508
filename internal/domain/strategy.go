package domain

// RiskLevel is a named risk tier for a strategy preset.
type RiskLevel string

// Risk tiers. Custom marks a locally edited variant of a preset.
const (
	RiskConservative RiskLevel = "conservative"
	RiskModerate     RiskLevel = "moderate"
	RiskAggressive   RiskLevel = "aggressive"
	RiskCustom       RiskLevel = "custom"
)

// Strategy is a named bundle of risk-control parameters governing agent
// behavior. MinProfitThreshold, MaxExposure, StopLossPercent,
// SlippageTolerance and VolatilityThreshold are fractions in [0,1].
type Strategy struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	RiskLevel            RiskLevel `json:"riskLevel"`
	MinProfitThreshold   float64   `json:"minProfitThreshold"`
	MaxPositionSize      float64   `json:"maxPositionSize"` // quote-currency units
	MaxDailyLoss         float64   `json:"maxDailyLoss"`    // quote-currency units
	MaxExposure          float64   `json:"maxExposure"`
	StopLossPercent      float64   `json:"stopLossPercent"`
	SlippageTolerance    float64   `json:"slippageTolerance"`
	MaxConsecutiveLosses int       `json:"maxConsecutiveLosses"`
	VolatilityThreshold  float64   `json:"volatilityThreshold"`
	Active               bool      `json:"active"`
	TradeCount           int       `json:"tradeCount"`
}

// StrategyPatch is a partial strategy update applied to the active strategy.
type StrategyPatch struct {
	Name                 *string  `json:"name,omitempty"`
	MinProfitThreshold   *float64 `json:"minProfitThreshold,omitempty"`
	MaxPositionSize      *float64 `json:"maxPositionSize,omitempty"`
	MaxDailyLoss         *float64 `json:"maxDailyLoss,omitempty"`
	MaxExposure          *float64 `json:"maxExposure,omitempty"`
	StopLossPercent      *float64 `json:"stopLossPercent,omitempty"`
	SlippageTolerance    *float64 `json:"slippageTolerance,omitempty"`
	MaxConsecutiveLosses *int     `json:"maxConsecutiveLosses,omitempty"`
	VolatilityThreshold  *float64 `json:"volatilityThreshold,omitempty"`
}

// Apply merges non-nil patch fields into the strategy.
func (p *StrategyPatch) Apply(s *Strategy) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.MinProfitThreshold != nil {
		s.MinProfitThreshold = *p.MinProfitThreshold
	}
	if p.MaxPositionSize != nil {
		s.MaxPositionSize = *p.MaxPositionSize
	}
	if p.MaxDailyLoss != nil {
		s.MaxDailyLoss = *p.MaxDailyLoss
	}
	if p.MaxExposure != nil {
		s.MaxExposure = *p.MaxExposure
	}
	if p.StopLossPercent != nil {
		s.StopLossPercent = *p.StopLossPercent
	}
	if p.SlippageTolerance != nil {
		s.SlippageTolerance = *p.SlippageTolerance
	}
	if p.MaxConsecutiveLosses != nil {
		s.MaxConsecutiveLosses = *p.MaxConsecutiveLosses
	}
	if p.VolatilityThreshold != nil {
		s.VolatilityThreshold = *p.VolatilityThreshold
	}
}
