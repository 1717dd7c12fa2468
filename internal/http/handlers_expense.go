package http

import (
	"errors"
	"net/http"

	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	in := ParseExpenseInput(r.PostForm)
	exp, err := s.ledger.AddExpense(r.Context(), in)

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Expense rejected",
			applog.FieldOperation, applog.OpAddExpense,
			applog.FieldError, verr)
		form := expenseFormFromInput(in, msgInvalidExpense)
		resp := NewHTMXResponse().Status(http.StatusUnprocessableEntity)
		if IsHTMX(r) {
			s.renderResponse(w, r, resp, "expense_form", form)
			return
		}
		page := s.page()
		page.ExpenseForm = form
		s.renderResponse(w, r, resp, "index.html", page)
		return
	case err != nil:
		s.serverError(w, r, applog.OpAddExpense, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		applog.NewFields().
			WithOperation(applog.OpAddExpense).
			WithExpense(exp.ID, exp.Amount.Cents, string(exp.Category)).
			ToSlice()...)

	if !IsHTMX(r) {
		SeeOther("/").Write(w)
		return
	}
	resp := NewHTMXResponse().TriggerLedgerChanged().TriggerFormReset()
	s.renderResponse(w, r, resp, "expense_form", newExpenseForm(s.ledger.Today()))
}

// handleDeleteExpense serves both DELETE (htmx) and POST (plain form) removal.
// An unknown id is not an error.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := ParseExpenseID(r)
	if err != nil {
		BadRequestError("Invalid expense id").Write(w)
		return
	}

	removed, err := s.ledger.DeleteExpense(r.Context(), id)
	if err != nil {
		s.serverError(w, r, applog.OpDeleteExpense, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense delete processed",
		applog.FieldOperation, applog.OpDeleteExpense,
		applog.FieldExpenseID, id,
		"removed", removed)

	switch {
	case IsHTMX(r):
		NewHTMXResponse().TriggerLedgerChanged().Write(w)
	case r.Method == http.MethodDelete:
		NewHTMXResponse().Status(http.StatusNoContent).Write(w)
	default:
		SeeOther("/").Write(w)
	}
}
