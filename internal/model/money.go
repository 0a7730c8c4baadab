package model

import "github.com/shopspring/decimal"

// Cents rounds an amount to two decimal places.
func Cents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Sum adds amounts together.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// MaxZero clamps negative amounts to zero.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
