// Package pricing holds the pure price computations shared by the cart
// and the order engine. Inputs are assumed validated upstream
// (discount percentage within 0..100, price non-negative).
package pricing

import "math"

// Round rounds to currency precision (two decimal places).
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// Discount returns the discounted price and the savings per unit.
func Discount(price float64, discountPct uint) (discounted, savings float64) {
	if discountPct == 0 {
		return Round(price), 0
	}
	discounted = Round(price * (1 - float64(discountPct)/100))
	return discounted, Round(price - discounted)
}

type Line struct {
	UnitPrice float64
	Quantity  uint
}

// Total sums unit price times quantity over the given lines.
func Total(lines []Line) float64 {
	var total float64
	for _, l := range lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return Round(total)
}
