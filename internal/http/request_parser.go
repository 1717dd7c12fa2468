// Package http provides HTTP server and handler implementations.
//
// This file holds the request-side helpers: form extraction, path
// parameters and HTMX detection.

package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budgetbook/internal/core"
)

var errInvalidExpenseID = errors.New("invalid expense id")

// ParseBudgetInput returns the raw budget amount from a submitted form.
func ParseBudgetInput(form url.Values) string {
	return strings.TrimSpace(form.Get("budget"))
}

// ParseExpenseInput extracts the add-expense fields from form values.
// Values are sanitized but not validated; the ledger does that.
func ParseExpenseInput(form url.Values) core.ExpenseInput {
	return core.ExpenseInput{
		Amount:      strings.TrimSpace(form.Get("amount")),
		Description: sanitizeInput(form.Get("description")),
		Category:    sanitizeInput(form.Get("category")),
		Date:        strings.TrimSpace(form.Get("date")),
	}
}

// ParseExpenseID reads the {id} path parameter.
func ParseExpenseID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidExpenseID
	}
	return id, nil
}

// IsHTMX reports whether the request was issued by htmx. Anything else gets
// full pages and redirects.
func IsHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
