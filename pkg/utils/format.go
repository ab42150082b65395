// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strconv"
)

// FormatPercent formats a profit fraction as a signed percentage.
func FormatPercent(frac float64) string {
	return fmt.Sprintf("%+.2f%%", frac*100)
}

// FormatQuantity formats a position quantity, trimming trailing zeros so
// whole lots print without a decimal tail.
func FormatQuantity(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}

// FormatPrice formats a price with two decimals.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}
