package vault

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// User-entered amounts are decimal strings; contract calls take fixed-point
// integers at the settlement token's precision. One decimals constant feeds
// both directions, so a parse/format round trip cannot scale or truncate.

// ParseAmount converts a decimal string to a fixed-point integer at the
// given precision. Digits beyond the precision are rejected rather than
// silently truncated.
func ParseAmount(s string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %q", s)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q exceeds %d decimal precision", s, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatAmount converts a fixed-point integer back to a decimal string at
// the same precision, with trailing zeros trimmed.
func FormatAmount(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}
