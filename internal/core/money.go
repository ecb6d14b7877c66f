// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts typed by users or
// exported by spreadsheets and price feeds, where currency symbols and
// thousands separators are common.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a human-formatted amount to a decimal.
//
// Currency symbols, spaces and thousands separators are dropped. When both
// '.' and ',' appear, the last one is the decimal separator; a lone ',' is a
// decimal separator only when followed by one or two digits.
//
// Examples:
//   ParseAmount("₹1,234.56") -> 1234.56
//   ParseAmount("24,741")    -> 24741
//   ParseAmount("12,34")     -> 12.34
//   ParseAmount("-5")        -> -5
func ParseAmount(s string) (decimal.Decimal, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	cleaned := normalizeSeparators(b.String())
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParsePositiveAmount parses s and returns its absolute value, rejecting zero.
func ParsePositiveAmount(s string) (float64, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	d = d.Abs()
	if d.IsZero() {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 {
			if frac := len(s) - lastComma - 1; frac == 1 || frac == 2 {
				return strings.Replace(s, ",", ".", 1)
			}
		}
		return strings.ReplaceAll(s, ",", "")
	}
	return s
}
