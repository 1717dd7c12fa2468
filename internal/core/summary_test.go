package core

import (
	"math/rand"
	"testing"
)

func expense(id int64, cents int64, c Category, d Date) Expense {
	return Expense{ID: id, Amount: Money{Cents: cents}, Description: "x", Category: c, Date: d}
}

func TestTotals(t *testing.T) {
	exps := []Expense{
		expense(1, 25000, Food, NewDate(2025, 1, 2)),
		expense(2, 70000, Rent, NewDate(2025, 1, 1)),
	}
	s := Totals(Money{Cents: 150000}, exps, DefaultLowBalanceThreshold)
	if s.Spent.Cents != 95000 || s.Remaining.Cents != 55000 || s.Low {
		t.Fatalf("unexpected summary %+v", s)
	}

	s = Totals(Money{Cents: 100000}, exps, DefaultLowBalanceThreshold)
	if s.Remaining.Cents != 5000 || !s.Low {
		t.Fatalf("expected low balance, got %+v", s)
	}

	s = Totals(Money{}, nil, DefaultLowBalanceThreshold)
	if s.Spent.Cents != 0 || s.Remaining.Cents != 0 || !s.Low {
		t.Fatalf("unexpected empty summary %+v", s)
	}
}

func TestBreakdownFixedOrderAndPercent(t *testing.T) {
	exps := []Expense{
		expense(1, 100, Transport, NewDate(2025, 1, 1)),
		expense(2, 100, Food, NewDate(2025, 1, 1)),
		expense(3, 200, Food, NewDate(2025, 1, 1)),
	}
	got := Breakdown(exps)
	if len(got) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(got))
	}
	want := []struct {
		c       Category
		cents   int64
		percent int
	}{
		{Food, 300, 75},
		{Rent, 0, 0},
		{Utilities, 0, 0},
		{Transport, 100, 25},
		{Others, 0, 0},
	}
	for i, w := range want {
		if got[i].Category != w.c || got[i].Amount.Cents != w.cents || got[i].Percent != w.percent {
			t.Fatalf("entry %d: got %+v want %+v", i, got[i], w)
		}
	}
}

func TestPercentRoundsHalfUp(t *testing.T) {
	if p := percentOf(1, 8); p != 13 { // 12.5
		t.Fatalf("expected 13, got %d", p)
	}
	if p := percentOf(1, 3); p != 33 {
		t.Fatalf("expected 33, got %d", p)
	}
	if p := percentOf(0, 0); p != 0 {
		t.Fatalf("expected 0, got %d", p)
	}
}

func TestBreakdownSumsEqualTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cats := Categories()
	for round := 0; round < 50; round++ {
		n := rng.Intn(40)
		exps := make([]Expense, 0, n)
		for i := 0; i < n; i++ {
			exps = append(exps, expense(int64(i), rng.Int63n(1_000_000)+1, cats[rng.Intn(len(cats))], NewDate(2025, 1, 1+rng.Intn(28))))
		}
		var sum int64
		for _, ca := range Breakdown(exps) {
			sum += ca.Amount.Cents
		}
		if sum != Total(exps).Cents {
			t.Fatalf("round %d: breakdown sum %d != total %d", round, sum, Total(exps).Cents)
		}
	}
}

func TestSortByDateDesc(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for round := 0; round < 30; round++ {
		n := rng.Intn(25)
		exps := make([]Expense, 0, n)
		for i := 0; i < n; i++ {
			exps = append(exps, expense(int64(i), 100, Food, NewDate(2020+rng.Intn(5), 1+rng.Intn(12), 1+rng.Intn(28))))
		}
		sorted := SortByDateDesc(exps)
		if len(sorted) != len(exps) {
			t.Fatalf("length changed")
		}
		for i := 1; i < len(sorted); i++ {
			if sorted[i].Date.After(sorted[i-1].Date.Time) {
				t.Fatalf("round %d: not sorted at %d: %s after %s", round, i, sorted[i].Date.ISO(), sorted[i-1].Date.ISO())
			}
		}
	}
}

func TestSortByDateDescDoesNotMutateInput(t *testing.T) {
	exps := []Expense{
		expense(1, 100, Food, NewDate(2025, 1, 1)),
		expense(2, 100, Food, NewDate(2025, 3, 1)),
	}
	sorted := SortByDateDesc(exps)
	if sorted[0].ID != 2 || exps[0].ID != 1 {
		t.Fatalf("unexpected order sorted=%v input=%v", sorted, exps)
	}
}

func TestBreakdownLargeAmounts(t *testing.T) {
	var expenses []Expense
	for i := 0; i < 300; i++ {
		c := Food
		if i%3 == 0 {
			c = Rent
		}
		expenses = append(expenses, Expense{Category: c, Amount: Money{Cents: maxCents}})
	}

	got := Breakdown(expenses)
	var sum int64
	percents := map[Category]int{}
	for _, ca := range got {
		sum += ca.Amount.Cents
		percents[ca.Category] = ca.Percent
	}
	if sum != Total(expenses).Cents || sum != 300*maxCents {
		t.Fatalf("sum = %d, total = %d", sum, Total(expenses).Cents)
	}
	if percents[Food] != 67 || percents[Rent] != 33 {
		t.Fatalf("percents = %v, want Food 67 Rent 33", percents)
	}
}
