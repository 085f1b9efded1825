// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals end to end: stores hand them over as
// strings, aggregation adds and multiplies them exactly, and only the
// format package rounds them for display.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a non-negative amount.
//
// A dot is always the decimal separator. A comma followed by exactly three
// digits groups thousands, and so does every comma when a dot is present. A
// single comma followed by one or two digits is a decimal comma. Any other
// comma is rejected. No rounding is applied. Returns ErrInvalidAmount for
// empty, malformed or negative input.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("25,000")   -> 25000, nil
//	ParseAmount("1,234.50") -> 1234.50, nil
//	ParseAmount("1,23.4")   -> 0, ErrInvalidAmount
//	ParseAmount("-1")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s, ok := normalizeSeparators(s)
	if !ok {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// normalizeSeparators strips thousands commas and turns a decimal comma into
// a dot.
func normalizeSeparators(s string) (string, bool) {
	if !strings.Contains(s, ",") {
		return s, true
	}
	intPart, frac, hasDot := strings.Cut(s, ".")
	groups := strings.Split(intPart, ",")
	if !hasDot && len(groups) == 2 && len(groups[1]) >= 1 && len(groups[1]) <= 2 {
		return groups[0] + "." + groups[1], true
	}
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return "", false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return "", false
		}
	}
	out := strings.Join(groups, "")
	if hasDot {
		out += "." + frac
	}
	return out, true
}

// AmountOrZero parses a store-provided decimal string, treating anything
// unparseable (including "") as zero.
func AmountOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// StoreString renders an amount the way the stores persist NUMERIC(12,2).
func StoreString(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Sum adds amounts without intermediate rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
