package shared

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places money is rounded to.
const MoneyScale int32 = 2

// MoneyTolerance is the largest rounding gap accepted between two amounts
// that should be equal.
var MoneyTolerance = decimal.New(1, -MoneyScale)

// RoundMoney rounds half away from zero to MoneyScale places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// FloorZero returns d, or zero if d is negative.
func FloorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// WithinTolerance reports whether a and b differ by at most MoneyTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(MoneyTolerance)
}

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
