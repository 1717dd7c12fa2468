package http

import (
	"strings"

	"budgetbook/internal/core"
)

// DefaultCurrencySymbol prefixes every displayed amount unless configured otherwise.
const DefaultCurrencySymbol = "₹"

// Remaining-balance CSS classes.
const (
	classLow    = "low"
	classNormal = "normal"
)

var badgeClasses = map[core.Category]string{
	core.Food:      "bg-cyan-100 text-cyan-800",
	core.Rent:      "bg-emerald-100 text-emerald-800",
	core.Utilities: "bg-blue-100 text-blue-800",
	core.Transport: "bg-teal-100 text-teal-800",
	core.Others:    "bg-slate-100 text-slate-800",
}

// formatMoney formats m as symbol + two decimals, e.g. "₹1500.00" or "₹-20.00".
func formatMoney(symbol string, m core.Money) string {
	return symbol + m.Fixed()
}

// balanceClass picks the remaining-balance style. Cosmetic only.
func balanceClass(low bool) string {
	if low {
		return classLow
	}
	return classNormal
}

// badgeClass returns the colour classes for a category badge.
func badgeClass(c core.Category) string {
	if cls, ok := badgeClasses[c]; ok {
		return cls
	}
	return "bg-gray-100 text-gray-800"
}

// formatDisplayDate renders a date for the expense table.
func formatDisplayDate(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("02 Jan 2006")
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
