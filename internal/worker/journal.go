// Package worker consumes the ledger change feed.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
)

// Journal appends every known ledger change to w as one JSON line.
type Journal struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
	counts map[string]int64
}

func NewJournal(w io.Writer, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		w:      w,
		logger: logger,
		counts: make(map[string]int64),
	}
}

// Handle records msg. Unknown change types are logged and acknowledged so
// they never loop through the queue.
func (j *Journal) Handle(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	switch core.ChangeType(msg.Type) {
	case core.EventBudgetSet, core.EventExpenseAdded, core.EventExpenseDeleted:
	default:
		j.logger.WarnContext(ctx, "Skipping unknown change type", "type", msg.Type)
		return nil
	}

	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(line); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	j.counts[msg.Type]++

	j.logger.DebugContext(ctx, "Journaled ledger change",
		"type", msg.Type,
		"expense_id", msg.ExpenseID,
		"budget_cents", msg.BudgetCents)
	return nil
}

// Counts returns how many changes of each type were journaled.
func (j *Journal) Counts() map[string]int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make(map[string]int64, len(j.counts))
	for k, v := range j.counts {
		out[k] = v
	}
	return out
}
