package price

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatPrice renders a price for display: whole values without decimals,
// fractional values rounded to at most two places.
func FormatPrice(value float64) string {
	rounded := math.Round(value*100) / 100
	if rounded == math.Trunc(rounded) {
		return strconv.FormatFloat(rounded, 'f', 0, 64)
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// FormatTotal renders a running total, always with two decimals.
func FormatTotal(total float64) string {
	return strconv.FormatFloat(total, 'f', 2, 64)
}

// FormatPriceAR renders a price in Argentine style: dot-grouped thousands,
// comma decimals ("1.234,56").
func FormatPriceAR(value float64) string {
	parts := strings.SplitN(strconv.FormatFloat(value, 'f', 2, 64), ".", 2)
	return groupThousands(parts[0]) + "," + parts[1]
}

// FormatTotalAR is FormatPriceAR with the total-display name kept for
// symmetry with FormatTotal.
func FormatTotalAR(total float64) string {
	return FormatPriceAR(total)
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return fmt.Sprintf("-%s", b.String())
	}
	return b.String()
}
