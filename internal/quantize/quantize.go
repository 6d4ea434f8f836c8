// Package quantize maps raw prices and quantities onto exchange-compliant
// values. Values are truncated toward zero, never rounded to nearest: an
// order computed from a notional must not exceed it, or the venue rejects
// the order for over-precision.
package quantize

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// StepPrecision returns the number of significant fractional digits in a
// decimal step or tick string: "0.00100000" -> 3, "1.00000000" -> 0.
// Integer steps above one yield a negative precision: "100" -> -2.
func StepPrecision(step string) int {
	step = strings.TrimSpace(step)
	if i := strings.Index(step, "."); i >= 0 {
		return len(strings.TrimRight(step[i+1:], "0"))
	}
	trimmed := strings.TrimRight(step, "0")
	if trimmed == "" {
		return 0
	}
	return -(len(step) - len(trimmed))
}

// Quantity truncates a raw quantity to the instrument's lot step.
func Quantity(raw float64, stepSize string) float64 {
	return truncate(raw, StepPrecision(stepSize))
}

// Price truncates a raw price to the instrument's price tick.
func Price(raw float64, tickSize string) float64 {
	return truncate(raw, StepPrecision(tickSize))
}

// truncate drops digits beyond precision without rounding. Decimal
// arithmetic keeps the operation exact, so quantizing twice equals
// quantizing once. Non-finite inputs quantize to 0, which no venue accepts
// as an order amount, instead of panicking inside the decimal constructor.
func truncate(v float64, precision int) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	d := decimal.NewFromFloat(v)
	if precision < 0 {
		factor := decimal.New(1, int32(-precision))
		d = d.Div(factor).Truncate(0).Mul(factor)
	} else {
		d = d.Truncate(int32(precision))
	}
	f, _ := d.Float64()
	return f
}
