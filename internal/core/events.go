package core

import "time"

const (
	EventBudgetSet      ChangeType = "budget.set"
	EventExpenseAdded   ChangeType = "expense.added"
	EventExpenseDeleted ChangeType = "expense.deleted"
)

// ChangeType names a ledger mutation.
type ChangeType string

// ChangeEvent describes one applied ledger mutation.
type ChangeEvent struct {
	Type      ChangeType
	Budget    Money
	Expense   Expense // zero for budget.set
	Timestamp time.Time
}
