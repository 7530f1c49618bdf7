package utils

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Thousands renders a rounded number with grouping separators: 1050 -> "1,050".
func Thousands(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}

// Money renders a whole-dollar amount: 50000 -> "$50,000".
func Money(v float64) string {
	if v < 0 {
		return "-$" + Thousands(-v)
	}
	return "$" + Thousands(v)
}

// Percent renders a ratio as a whole percentage: 0.15 -> "15%".
func Percent(ratio float64) string {
	return printer.Sprintf("%d%%", int64(math.Round(ratio*100)))
}

// Finite reports whether v is neither NaN nor an infinity.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
