// Package money holds minor-unit arithmetic shared by bidding and settlement.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percent returns pct percent of cents, rounded half-up to the nearest minor unit.
// Amounts are non-negative so decimal's half-away-from-zero rounding is half-up.
func Percent(cents int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(pct).Div(hundred).Round(0).IntPart()
}

// ParsePercent parses a percentage and checks it lies within [0, 100].
func ParsePercent(raw string) (decimal.Decimal, error) {
	pct, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse percentage %q: %w", raw, err)
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return decimal.Zero, fmt.Errorf("percentage %s outside [0, 100]", pct)
	}
	return pct, nil
}

// Format renders minor units as a major-unit string with two decimals, e.g. 4000 -> "40.00".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
