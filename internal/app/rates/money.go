package rates

import (
	"math"
	"strconv"
)

// Buy-flow estimates carry a fixed wastage buffer on top of the metal value.
const WastageBuffer = 0.15

// Quote returns the rounded buy-flow estimate for the given per-gram rate
// and weight: rate * grams * (1 + wastage), to the nearest rupee.
func Quote(ratePerGram, grams float64) int64 {
	return int64(math.Round(ratePerGram * grams * (1 + WastageBuffer)))
}

// Calculate is the programmatic variant with configurable making-charge and
// tax multipliers instead of the flat wastage buffer.
func Calculate(ratePerGram, grams, makingCharge, tax float64) int64 {
	return int64(math.Round(ratePerGram * grams * (1 + makingCharge) * (1 + tax)))
}

// FormatINR renders a rupee amount with Indian digit grouping, e.g. 69000 ->
// "₹69,000" and 123456 -> "₹1,23,456".
func FormatINR(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var out []byte
	// Last group of three, then groups of two.
	for i, n := 0, len(digits); i < n; i++ {
		rem := n - i
		if i > 0 && (rem == 3 || (rem > 3 && (rem-3)%2 == 0)) {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}

	s := "₹" + string(out)
	if neg {
		s = "-" + s
	}
	return s
}
