package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"budgetbook/internal/core"
)

// State is the full persisted ledger.
type State struct {
	Budget   core.Money
	Expenses []core.Expense
}

// expenseRecord is the JSON shape of one stored expense. Amount is written as
// a bare JSON number so the array stays readable by the browser version.
type expenseRecord struct {
	ID          int64       `json:"id"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
}

var (
	errMalformedBudget   = errors.New("malformed budget entry")
	errMalformedExpenses = errors.New("malformed expenses entry")
)

// EncodeBudget renders the budget as plain decimal text.
func EncodeBudget(m core.Money) string {
	return m.FormatPlain()
}

// DecodeBudget parses a stored budget. Negative or unparsable text is malformed.
func DecodeBudget(s string) (core.Money, error) {
	m, ok := core.ParseStoredAmount(s)
	if !ok {
		return core.Money{}, errMalformedBudget
	}
	return m, nil
}

// EncodeExpenses renders expenses as a JSON array in insertion order.
func EncodeExpenses(expenses []core.Expense) (string, error) {
	records := make([]expenseRecord, 0, len(expenses))
	for _, e := range expenses {
		records = append(records, expenseRecord{
			ID:          e.ID,
			Amount:      json.Number(e.Amount.FormatPlain()),
			Description: e.Description,
			Category:    e.Category.String(),
			Date:        e.Date.ISO(),
		})
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal expenses: %w", err)
	}
	return string(b), nil
}

// DecodeExpenses parses a stored expense array. A malformed array yields an
// error; individual records that break the ledger invariants (bad amount,
// unknown category, duplicate id) are dropped and reported in skipped.
func DecodeExpenses(s string) (expenses []core.Expense, skipped []error, err error) {
	var records []expenseRecord
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errMalformedExpenses, err)
	}

	seen := make(map[int64]struct{}, len(records))
	expenses = make([]core.Expense, 0, len(records))
	for i, r := range records {
		e, err := r.toExpense()
		if err != nil {
			skipped = append(skipped, fmt.Errorf("record %d (id=%d): %w", i, r.ID, err))
			continue
		}
		if _, dup := seen[e.ID]; dup {
			skipped = append(skipped, fmt.Errorf("record %d: duplicate id %d", i, e.ID))
			continue
		}
		seen[e.ID] = struct{}{}
		expenses = append(expenses, e)
	}
	return expenses, skipped, nil
}

func (r expenseRecord) toExpense() (core.Expense, error) {
	amount, ok := core.ParseStoredAmount(r.Amount.String())
	if !ok {
		return core.Expense{}, core.ErrInvalidAmount
	}
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:          r.ID,
		Amount:      amount,
		Description: strings.TrimSpace(r.Description),
		Category:    core.Category(r.Category),
		Date:        date,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// LoadState reads both entries from kv. Absent or malformed entries fall back
// to a zero budget and an empty list; only store failures are returned.
func LoadState(ctx context.Context, kv KeyValueStore) (State, error) {
	var st State

	raw, ok, err := kv.Get(ctx, KeyBudget)
	if err != nil {
		return State{}, fmt.Errorf("read %s: %w", KeyBudget, err)
	}
	if ok {
		if m, err := DecodeBudget(raw); err != nil {
			slog.WarnContext(ctx, "Ignoring stored budget", "error", err, "value", raw)
		} else {
			st.Budget = m
		}
	}

	raw, ok, err = kv.Get(ctx, KeyExpenses)
	if err != nil {
		return State{}, fmt.Errorf("read %s: %w", KeyExpenses, err)
	}
	if ok {
		expenses, skipped, err := DecodeExpenses(raw)
		if err != nil {
			slog.WarnContext(ctx, "Ignoring stored expenses", "error", err)
		} else {
			st.Expenses = expenses
		}
		for _, s := range skipped {
			slog.WarnContext(ctx, "Dropped stored expense", "error", s)
		}
	}

	if st.Expenses == nil {
		st.Expenses = []core.Expense{}
	}
	return st, nil
}

// SaveState writes the budget entry and then the expenses entry.
func SaveState(ctx context.Context, kv KeyValueStore, st State) error {
	if err := kv.Set(ctx, KeyBudget, EncodeBudget(st.Budget)); err != nil {
		return fmt.Errorf("write %s: %w", KeyBudget, err)
	}
	raw, err := EncodeExpenses(st.Expenses)
	if err != nil {
		return err
	}
	if err := kv.Set(ctx, KeyExpenses, raw); err != nil {
		return fmt.Errorf("write %s: %w", KeyExpenses, err)
	}
	return nil
}
