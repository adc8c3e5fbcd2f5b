package pricing

import "github.com/shopspring/decimal"

// FormatAmount renders a currency amount with two decimals. This is the only
// place amounts are rounded.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// MinorUnits converts an amount to the processor's smallest currency unit
// (satang for THB), rounding half away from zero at two decimals.
func MinorUnits(v float64) int64 {
	return decimal.NewFromFloat(v).Round(2).Shift(2).IntPart()
}
