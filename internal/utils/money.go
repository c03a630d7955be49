// internal/utils/money.go
package utils

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half away from zero to 2 decimals.
func RoundMoney(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// CalculateCommission returns percent% of price rounded to cents
// (29.99 @ 10% -> 3.00, 0.05 @ 10% -> 0.01).
func CalculateCommission(price, percent float64) float64 {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromFloat(percent)).
		Div(hundred).
		Round(2).
		InexactFloat64()
}

// ToMinorUnits converts an amount to integer cents for payment processors.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(hundred).Round(0).IntPart()
}

// Revenue returns sum(price * sales) rounded to cents.
func Revenue(prices []float64, sales []int64) float64 {
	total := decimal.Zero
	for i := range prices {
		if i >= len(sales) {
			break
		}
		total = total.Add(decimal.NewFromFloat(prices[i]).Mul(decimal.NewFromInt(sales[i])))
	}
	return total.Round(2).InexactFloat64()
}
