// Package ledger owns the budget and expense list, validates every mutation
// and mirrors the state to a key-value store after each change.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/storage"
)

// Notifier receives an event after every applied mutation.
type Notifier interface {
	Publish(ctx context.Context, ev core.ChangeEvent) error
}

// View is a consistent projection of the ledger at one point in time.
type View struct {
	Budget    core.Money
	Expenses  []core.Expense // insertion order
	Summary   core.Summary
	Breakdown []core.CategoryAmount
	Table     []core.Expense // newest first
}

type Ledger struct {
	mu       sync.Mutex
	budget   core.Money
	expenses []core.Expense
	lastID   int64

	store        storage.KeyValueStore
	notifier     Notifier
	now          func() time.Time
	logger       *slog.Logger
	lowThreshold core.Money
}

type Option func(*Ledger)

// WithClock overrides the time source used for IDs and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithNotifier registers a change feed. A nil notifier disables it.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// WithLowThreshold sets the remaining balance below which the summary is flagged low.
func WithLowThreshold(m core.Money) Option {
	return func(l *Ledger) { l.lowThreshold = m }
}

// Open loads the ledger from store. Missing or malformed entries start empty;
// only store read failures are returned.
func Open(ctx context.Context, store storage.KeyValueStore, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:        store,
		now:          time.Now,
		logger:       slog.Default(),
		lowThreshold: core.DefaultLowBalanceThreshold,
	}
	for _, opt := range opts {
		opt(l)
	}

	st, err := storage.LoadState(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	l.budget = st.Budget
	l.expenses = st.Expenses
	for _, e := range l.expenses {
		if e.ID > l.lastID {
			l.lastID = e.ID
		}
	}

	l.logger.InfoContext(ctx, "Ledger loaded",
		"budget", l.budget.Fixed(),
		"expenses", len(l.expenses))
	return l, nil
}

// SetBudget replaces the budget with the parsed raw amount. A non-positive or
// non-numeric value yields a *core.ValidationError and leaves the budget unchanged.
func (l *Ledger) SetBudget(ctx context.Context, raw string) (core.Money, error) {
	cents, err := core.ParseAmount(raw)
	if err != nil {
		return core.Money{}, core.NewValidationError(core.FieldBudget, err)
	}
	budget := core.Money{Cents: cents}

	l.mu.Lock()
	prev := l.budget
	l.budget = budget
	if err := l.persistLocked(ctx); err != nil {
		l.budget = prev
		l.mu.Unlock()
		return core.Money{}, err
	}
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Budget set", "budget", budget.Fixed())
	l.notify(ctx, core.ChangeEvent{Type: core.EventBudgetSet, Budget: budget})
	return budget, nil
}

// AddExpense validates in and appends a new expense. Every invalid field is
// reported in one *core.ValidationError and nothing is written.
func (l *Ledger) AddExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	// Validate before taking an ID so rejected input never advances the sequence.
	if _, err := core.ParseExpense(0, in); err != nil {
		return core.Expense{}, err
	}

	l.mu.Lock()
	id := l.nextIDLocked()
	e, err := core.ParseExpense(id, in)
	if err != nil {
		l.mu.Unlock()
		return core.Expense{}, err
	}

	prevLastID := l.lastID
	l.lastID = id
	l.expenses = append(l.expenses, e)
	if err := l.persistLocked(ctx); err != nil {
		l.expenses = l.expenses[:len(l.expenses)-1]
		l.lastID = prevLastID
		l.mu.Unlock()
		return core.Expense{}, err
	}
	budget := l.budget
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "Expense added",
		"id", e.ID,
		"amount", e.Amount.Fixed(),
		"category", e.Category,
		"date", e.Date.ISO())
	l.notify(ctx, core.ChangeEvent{Type: core.EventExpenseAdded, Budget: budget, Expense: e})
	return e, nil
}

// DeleteExpense removes the expense with id, if any. The ledger is persisted
// in both cases; removed reports whether a record matched.
func (l *Ledger) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	l.mu.Lock()
	prev := l.expenses
	idx := -1
	for i, e := range l.expenses {
		if e.ID == id {
			idx = i
			break
		}
	}

	var removed core.Expense
	if idx >= 0 {
		removed = l.expenses[idx]
		next := make([]core.Expense, 0, len(l.expenses)-1)
		next = append(next, l.expenses[:idx]...)
		next = append(next, l.expenses[idx+1:]...)
		l.expenses = next
	}
	if err := l.persistLocked(ctx); err != nil {
		l.expenses = prev
		l.mu.Unlock()
		return false, err
	}
	budget := l.budget
	l.mu.Unlock()

	if idx < 0 {
		l.logger.DebugContext(ctx, "Delete of unknown expense ignored", "id", id)
		return false, nil
	}

	l.logger.InfoContext(ctx, "Expense deleted", "id", id)
	l.notify(ctx, core.ChangeEvent{Type: core.EventExpenseDeleted, Budget: budget, Expense: removed})
	return true, nil
}

// Snapshot returns budget, expenses and every derived projection.
func (l *Ledger) Snapshot() View {
	l.mu.Lock()
	budget := l.budget
	expenses := make([]core.Expense, len(l.expenses))
	copy(expenses, l.expenses)
	l.mu.Unlock()

	return View{
		Budget:    budget,
		Expenses:  expenses,
		Summary:   core.Totals(budget, expenses, l.lowThreshold),
		Breakdown: core.Breakdown(expenses),
		Table:     core.SortByDateDesc(expenses),
	}
}

// Today returns the current calendar date according to the ledger clock.
func (l *Ledger) Today() core.Date {
	return core.DateOf(l.now())
}

// Ping checks the underlying store when it supports it.
func (l *Ledger) Ping(ctx context.Context) error {
	if p, ok := l.store.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// nextIDLocked returns the creation time in Unix milliseconds, bumped past
// the last issued ID so IDs stay unique and strictly increasing.
func (l *Ledger) nextIDLocked() int64 {
	id := l.now().UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	return id
}

func (l *Ledger) persistLocked(ctx context.Context) error {
	st := storage.State{Budget: l.budget, Expenses: l.expenses}
	if err := storage.SaveState(ctx, l.store, st); err != nil {
		l.logger.ErrorContext(ctx, "Failed to persist ledger", "error", err)
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

func (l *Ledger) notify(ctx context.Context, ev core.ChangeEvent) {
	if l.notifier == nil {
		return
	}
	ev.Timestamp = l.now().UTC()
	if err := l.notifier.Publish(ctx, ev); err != nil {
		l.logger.ErrorContext(ctx, "Failed to publish ledger change",
			"type", ev.Type,
			"error", err)
	}
}
