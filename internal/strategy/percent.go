package strategy

// The store keeps risk fractions in [0,1]; display sliders operate on a
// x100 percent scale. Both directions go through these two functions so a
// round trip reproduces the stored fraction within floating-point tolerance.

// ToDisplayPercent converts a stored fraction to its slider value.
func ToDisplayPercent(fraction float64) float64 {
	return fraction * 100
}

// FromDisplayPercent converts a slider value back to the stored fraction.
func FromDisplayPercent(percent float64) float64 {
	return percent / 100
}
