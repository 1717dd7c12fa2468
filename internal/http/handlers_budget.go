package http

import (
	"errors"
	"net/http"

	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
)

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	raw := ParseBudgetInput(r.PostForm)
	budget, err := s.ledger.SetBudget(r.Context(), raw)

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		form := budgetFormData{Value: raw, Error: msgInvalidBudget}
		resp := NewHTMXResponse().Status(http.StatusUnprocessableEntity)
		if IsHTMX(r) {
			s.renderResponse(w, r, resp, "budget_form", form)
			return
		}
		page := s.page()
		page.BudgetForm = form
		s.renderResponse(w, r, resp, "index.html", page)
		return
	case err != nil:
		s.serverError(w, r, applog.OpSetBudget, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Budget set",
		applog.FieldOperation, applog.OpSetBudget,
		applog.FieldBudgetCents, budget.Cents)

	if !IsHTMX(r) {
		SeeOther("/").Write(w)
		return
	}
	s.renderResponse(w, r, NewHTMXResponse().TriggerLedgerChanged(), "budget_form", newBudgetForm(budget))
}
