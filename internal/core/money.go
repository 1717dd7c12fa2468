// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and their decimal text representation.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns ErrInvalidAmount for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseAmount("12.34") -> 1234, nil
//	ParseAmount("12,34") -> 1234, nil
//	ParseAmount("12.345") -> 1235, nil (rounds up)
//	ParseAmount("12.344") -> 1234, nil (rounds down)
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	// decimal accepts exponents; a budget form never sends one.
	if strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents, ok := toCents(d)
	if !ok || cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseStoredAmount reads an amount written by FormatPlain. Zero is accepted.
func ParseStoredAmount(s string) (Money, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return Money{}, false
	}
	cents, ok := toCents(d)
	if !ok {
		return Money{}, false
	}
	return Money{Cents: cents}, true
}

func toCents(d decimal.Decimal) (int64, bool) {
	c := d.Shift(2).Round(0)
	if !c.IsInteger() || c.GreaterThan(decimal.NewFromInt(maxCents)) || c.LessThan(decimal.NewFromInt(-maxCents)) {
		return 0, false
	}
	return c.IntPart(), true
}

// Largest single amount, in cents. Thousands of such amounts still sum
// inside int64.
const maxCents = 1_000_000_000_000_000

// Decimal returns the amount as a decimal in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Fixed formats the amount with exactly two decimals, e.g. "1500.00".
func (m Money) Fixed() string {
	return m.Decimal().StringFixed(2)
}

// FormatPlain formats the amount with no trailing zeros, e.g. "1500" or "12.5".
// This is the shape persisted for the budget entry.
func (m Money) FormatPlain() string {
	return m.Decimal().String()
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}
