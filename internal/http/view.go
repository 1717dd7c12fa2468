package http

import (
	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
)

// Inline messages shown next to the forms on a validation failure.
const (
	msgInvalidBudget  = "Please enter a valid budget amount"
	msgInvalidExpense = "Please fill all fields with valid values"
)

type pageData struct {
	TodayDisplay string
	BudgetForm   budgetFormData
	ExpenseForm  expenseFormData
	Dashboard    dashboardData
}

type budgetFormData struct {
	Value string
	Error string
}

type expenseFormData struct {
	Amount      string
	Description string
	Category    string
	Date        string
	Categories  []string
	Error       string
}

type dashboardData struct {
	Budget         string
	Spent          string
	Remaining      string
	RemainingClass string
	Rows           []expenseRow
	Chart          chartData
}

type expenseRow struct {
	ID          int64
	Date        string
	Description string
	Category    string
	BadgeClass  string
	Amount      string
}

func newBudgetForm(budget core.Money) budgetFormData {
	if budget.Cents <= 0 {
		return budgetFormData{}
	}
	return budgetFormData{Value: budget.FormatPlain()}
}

// newExpenseForm returns an empty form with the date preset to today.
func newExpenseForm(today core.Date) expenseFormData {
	return expenseFormData{
		Date:       today.ISO(),
		Categories: categoryNames(),
	}
}

// expenseFormFromInput keeps what the user typed so a failed submit can be corrected.
func expenseFormFromInput(in core.ExpenseInput, message string) expenseFormData {
	return expenseFormData{
		Amount:      in.Amount,
		Description: in.Description,
		Category:    in.Category,
		Date:        in.Date,
		Categories:  categoryNames(),
		Error:       message,
	}
}

func newDashboard(v ledger.View, symbol string) dashboardData {
	d := dashboardData{
		Budget:         formatMoney(symbol, v.Summary.Budget),
		Spent:          formatMoney(symbol, v.Summary.Spent),
		Remaining:      formatMoney(symbol, v.Summary.Remaining),
		RemainingClass: balanceClass(v.Summary.Low),
		Chart:          buildChart(v.Breakdown, symbol),
	}
	for _, e := range v.Table {
		d.Rows = append(d.Rows, expenseRow{
			ID:          e.ID,
			Date:        formatDisplayDate(e.Date),
			Description: e.Description,
			Category:    string(e.Category),
			BadgeClass:  badgeClass(e.Category),
			Amount:      formatMoney(symbol, e.Amount),
		})
	}
	return d
}

func categoryNames() []string {
	cats := core.Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return names
}
