// Package strategy provides the risk-strategy preset catalog and the
// percent-scale conversion used by display sliders.
package strategy

import (
	"errors"

	"arb-console/internal/domain"
)

// ErrUnknownPreset is returned when a preset id is not in the catalog.
var ErrUnknownPreset = errors.New("unknown strategy preset")

// Preset ids.
const (
	PresetConservative = "conservative"
	PresetModerate     = "moderate"
	PresetAggressive   = "aggressive"
)

// presets is the pristine catalog. Resetting a strategy restores the copy
// held here; local edits never touch it.
var presets = []domain.Strategy{
	{
		ID:                   PresetConservative,
		Name:                 "Conservative",
		RiskLevel:            domain.RiskConservative,
		MinProfitThreshold:   0.01,
		MaxPositionSize:      1000,
		MaxDailyLoss:         100,
		MaxExposure:          0.25,
		StopLossPercent:      0.02,
		SlippageTolerance:    0.003,
		MaxConsecutiveLosses: 3,
		VolatilityThreshold:  0.05,
	},
	{
		ID:                   PresetModerate,
		Name:                 "Moderate",
		RiskLevel:            domain.RiskModerate,
		MinProfitThreshold:   0.005,
		MaxPositionSize:      5000,
		MaxDailyLoss:         500,
		MaxExposure:          0.5,
		StopLossPercent:      0.05,
		SlippageTolerance:    0.005,
		MaxConsecutiveLosses: 5,
		VolatilityThreshold:  0.1,
	},
	{
		ID:                   PresetAggressive,
		Name:                 "Aggressive",
		RiskLevel:            domain.RiskAggressive,
		MinProfitThreshold:   0.002,
		MaxPositionSize:      20000,
		MaxDailyLoss:         2000,
		MaxExposure:          0.8,
		StopLossPercent:      0.1,
		SlippageTolerance:    0.01,
		MaxConsecutiveLosses: 8,
		VolatilityThreshold:  0.2,
	},
}

// Presets returns a copy of the preset catalog.
func Presets() []domain.Strategy {
	return append([]domain.Strategy(nil), presets...)
}

// PresetByID returns a pristine copy of the catalog entry with the given id.
func PresetByID(id string) (domain.Strategy, error) {
	for _, p := range presets {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Strategy{}, ErrUnknownPreset
}
