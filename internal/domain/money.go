package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineTotal returns price × quantity rounded to cents.
func LineTotal(price float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// SumLines accumulates line totals, rounding every partial sum to cents so the
// result never depends on float aggregation order.
func SumLines[T any](lines []T, line func(T) (float64, int)) float64 {
	sum := decimal.Zero
	for _, l := range lines {
		price, qty := line(l)
		sum = sum.Add(LineTotal(price, qty)).Round(2)
	}
	return sum.InexactFloat64()
}

// ToMinorUnits converts an amount to the smallest currency unit (cents, paise).
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(minor int64) float64 {
	return decimal.NewFromInt(minor).Div(hundred).Round(2).InexactFloat64()
}
