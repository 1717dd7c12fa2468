package amqp

import (
	"encoding/json"
	"time"

	"budgetbook/internal/core"
)

// LedgerChangeMessage is the wire form of one applied ledger mutation.
// Amounts travel as integer cents.
type LedgerChangeMessage struct {
	Type        string    `json:"type"`
	ExpenseID   int64     `json:"expense_id,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Category    string    `json:"category,omitempty"`
	Date        string    `json:"date,omitempty"`
	BudgetCents int64     `json:"budget_cents"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerChangeMessage flattens a change event. Expense fields stay empty
// for budget.set.
func NewLedgerChangeMessage(ev core.ChangeEvent) *LedgerChangeMessage {
	msg := &LedgerChangeMessage{
		Type:        string(ev.Type),
		BudgetCents: ev.Budget.Cents,
		Timestamp:   ev.Timestamp,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if ev.Type != core.EventBudgetSet {
		msg.ExpenseID = ev.Expense.ID
		msg.AmountCents = ev.Expense.Amount.Cents
		msg.Category = ev.Expense.Category.String()
		msg.Date = ev.Expense.Date.ISO()
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeMessageFromJSON decodes a message body.
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
