package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DefaultLowBalanceThreshold is the remaining balance below which the
// summary is flagged as low.
var DefaultLowBalanceThreshold = Money{Cents: 500_00}

// Summary holds the running totals shown above the expense table.
type Summary struct {
	Budget    Money
	Spent     Money
	Remaining Money
	Low       bool // cosmetic: Remaining < threshold
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
	Percent  int // share of the visible total, rounded to the nearest integer
}

// Total sums all expense amounts.
func Total(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Totals computes budget, spent and remaining from scratch.
func Totals(budget Money, expenses []Expense, lowThreshold Money) Summary {
	spent := Total(expenses)
	remaining := budget.Sub(spent)
	return Summary{
		Budget:    budget,
		Spent:     spent,
		Remaining: remaining,
		Low:       remaining.Cents < lowThreshold.Cents,
	}
}

// Breakdown sums expenses per category, one entry per category in fixed
// order, zeros included. The entries always add up to Total(expenses).
func Breakdown(expenses []Expense) []CategoryAmount {
	sums := make(map[Category]int64, len(categories))
	var total int64
	for _, e := range expenses {
		sums[e.Category] += e.Amount.Cents
		total += e.Amount.Cents
	}

	out := make([]CategoryAmount, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryAmount{
			Category: c,
			Amount:   Money{Cents: sums[c]},
			Percent:  percentOf(sums[c], total),
		})
	}
	return out
}

// percentOf rounds part/total*100 half-up.
func percentOf(part, total int64) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(total)).Round(0).IntPart())
}

// SortByDateDesc returns a copy of expenses ordered newest first.
func SortByDateDesc(expenses []Expense) []Expense {
	out := make([]Expense, len(expenses))
	copy(out, expenses)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}
