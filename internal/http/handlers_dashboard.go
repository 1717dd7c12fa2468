package http

import (
	"net/http"

	applog "budgetbook/internal/log"
)

type ledgerResponse struct {
	BudgetCents    int64              `json:"budget_cents"`
	SpentCents     int64              `json:"spent_cents"`
	RemainingCents int64              `json:"remaining_cents"`
	Low            bool               `json:"low"`
	Breakdown      []categoryResponse `json:"breakdown"`
	Expenses       []expenseResponse  `json:"expenses"`
}

type categoryResponse struct {
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	Percent     int    `json:"percent"`
}

type expenseResponse struct {
	ID          int64  `json:"id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

// handleDashboard renders the summary, chart and table partial.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderResponse(w, r, NewHTMXResponse(), "dashboard", newDashboard(s.ledger.Snapshot(), s.currency))
}

// handleChart serves the category pie on its own as an SVG document.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	svg, err := buildChart(s.ledger.Snapshot().Breakdown, s.currency).SVG()
	if err != nil {
		s.serverError(w, r, applog.OpRender, err)
		return
	}
	NewHTMXResponse().
		Header("Content-Type", "image/svg+xml").
		Header("Cache-Control", "no-store").
		BodyString(string(svg)).
		Write(w)
}

// handleLedgerJSON returns the current snapshot, expenses newest first.
func (s *Server) handleLedgerJSON(w http.ResponseWriter, r *http.Request) {
	view := s.ledger.Snapshot()
	resp := ledgerResponse{
		BudgetCents:    view.Summary.Budget.Cents,
		SpentCents:     view.Summary.Spent.Cents,
		RemainingCents: view.Summary.Remaining.Cents,
		Low:            view.Summary.Low,
		Breakdown:      make([]categoryResponse, 0, len(view.Breakdown)),
		Expenses:       make([]expenseResponse, 0, len(view.Table)),
	}
	for _, ca := range view.Breakdown {
		resp.Breakdown = append(resp.Breakdown, categoryResponse{
			Category:    string(ca.Category),
			AmountCents: ca.Amount.Cents,
			Percent:     ca.Percent,
		})
	}
	for _, e := range view.Table {
		resp.Expenses = append(resp.Expenses, expenseResponse{
			ID:          e.ID,
			AmountCents: e.Amount.Cents,
			Description: e.Description,
			Category:    string(e.Category),
			Date:        e.Date.ISO(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
