package strategy

import (
	"math"
	"testing"
)

func TestPercentConversion(t *testing.T) {
	if got := ToDisplayPercent(0.05); got != 5 {
		t.Errorf("ToDisplayPercent(0.05) = %f, want 5", got)
	}
	if got := FromDisplayPercent(5); got != 0.05 {
		t.Errorf("FromDisplayPercent(5) = %f, want 0.05", got)
	}
}

func TestPercentRoundTrip(t *testing.T) {
	fractions := []float64{0, 0.001, 0.003, 0.0123456789, 0.05, 0.5, 0.999, 1}
	for _, f := range fractions {
		if got := FromDisplayPercent(ToDisplayPercent(f)); math.Abs(got-f) > 1e-9 {
			t.Errorf("round trip %v = %v, diff %.2e", f, got, math.Abs(got-f))
		}
	}
	percents := []float64{0, 0.1, 0.3, 1.5, 50, 99.9, 100}
	for _, p := range percents {
		if got := ToDisplayPercent(FromDisplayPercent(p)); math.Abs(got-p) > 1e-9 {
			t.Errorf("round trip %v%% = %v%%, diff %.2e", p, got, math.Abs(got-p))
		}
	}
}
