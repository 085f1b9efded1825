// Package format renders amounts for display in naira. This is the only
// place amounts are rounded.
package format

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const symbol = "₦"

var (
	printer  = message.NewPrinter(language.English)
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
)

// Currency formats d with two decimals and grouped thousands, e.g. ₦1,234.50.
func Currency(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	sign := ""
	if d.IsNegative() && fixed != "0.00" {
		sign = "-"
	}
	return sign + symbol + group(whole) + "." + frac
}

// Compact abbreviates amounts of a thousand or more with one decimal and a
// K or M suffix. Smaller and negative amounts fall back to Currency.
func Compact(d decimal.Decimal) string {
	switch {
	case d.GreaterThanOrEqual(million):
		return symbol + d.Div(million).StringFixed(1) + "M"
	case d.GreaterThanOrEqual(thousand):
		return symbol + d.Div(thousand).StringFixed(1) + "K"
	default:
		return Currency(d)
	}
}

// Number formats an integer with grouped thousands.
func Number(n int) string {
	return printer.Sprintf("%d", n)
}

// Percent renders a share such as 33.3 as "33.3%".
func Percent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

func group(digits string) string {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return digits
	}
	return printer.Sprintf("%d", n)
}
