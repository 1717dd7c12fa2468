package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
	applog "budgetbook/internal/log"
	"budgetbook/internal/storage"
	"budgetbook/internal/storage/memory"
)

// brokenStore reads fine but every write and ping fails.
type brokenStore struct {
	*memory.Store
}

func (brokenStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func (brokenStore) Ping(context.Context) error {
	return errors.New("store offline")
}

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError, Output: io.Discard})
}

func openLedger(t *testing.T, kv storage.KeyValueStore) *ledger.Ledger {
	t.Helper()
	led, err := ledger.Open(context.Background(), kv,
		ledger.WithClock(func() time.Time { return testNow }),
		ledger.WithLogger(quietLogger().Logger))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return led
}

func startServer(t *testing.T, led Ledger, cfg Config) *Server {
	t.Helper()
	if cfg.RateLimitPerMinute == 0 {
		cfg.RateLimitPerMinute = 1000
	}
	srv, err := NewServer(cfg, led, quietLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(srv.rateLimiter.Stop)
	return srv
}

func do(t *testing.T, srv *Server, method, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func mustContain(t *testing.T, body string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(body, p) {
			t.Errorf("body missing %q", p)
		}
	}
}

func TestIndexAndHealth(t *testing.T) {
	srv := startServer(t, openLedger(t, memory.New()), Config{})

	rr := do(t, srv, http.MethodGet, "/", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	mustContain(t, rr.Body.String(),
		"Budget Book",
		"Friday, 15 March 2024",
		`value="2024-03-15"`,
		"No expenses added yet",
		"₹0.00",
		`<option value="Transport">Transport</option>`,
	)
	if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, nil, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	if rr := do(t, srv, http.MethodGet, "/missing", nil, false); rr.Code != http.StatusNotFound {
		t.Errorf("unknown path status=%d, want 404", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/budget", nil, false); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /budget status=%d, want 405", rr.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	srv := startServer(t, openLedger(t, memory.New()), Config{})

	rr := do(t, srv, http.MethodGet, "/static/app.css", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestSetBudget(t *testing.T) {
	led := openLedger(t, memory.New())
	srv := startServer(t, led, Config{})

	t.Run("invalid htmx keeps input", func(t *testing.T) {
		rr := do(t, srv, http.MethodPost, "/budget", url.Values{"budget": {"abc"}}, true)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status=%d, want 422", rr.Code)
		}
		mustContain(t, rr.Body.String(), msgInvalidBudget, `value="abc"`)
		if rr.Header().Get("HX-Trigger") != "" {
			t.Errorf("failed submit should not trigger a refresh")
		}
		if got := led.Snapshot().Budget.Cents; got != 0 {
			t.Errorf("budget changed to %d", got)
		}
	})

	t.Run("invalid full page", func(t *testing.T) {
		rr := do(t, srv, http.MethodPost, "/budget", url.Values{"budget": {"-5"}}, false)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status=%d, want 422", rr.Code)
		}
		mustContain(t, rr.Body.String(), "Budget Book", msgInvalidBudget, `value="-5"`)
	})

	t.Run("valid htmx", func(t *testing.T) {
		rr := do(t, srv, http.MethodPost, "/budget", url.Values{"budget": {"1500"}}, true)
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d", rr.Code)
		}
		if !strings.Contains(rr.Header().Get("HX-Trigger"), EventLedgerChanged) {
			t.Errorf("HX-Trigger = %q", rr.Header().Get("HX-Trigger"))
		}
		mustContain(t, rr.Body.String(), `value="1500"`, `class="error hidden"`)
		if got := led.Snapshot().Budget.Cents; got != 150000 {
			t.Errorf("budget = %d, want 150000", got)
		}
	})

	t.Run("valid redirects", func(t *testing.T) {
		rr := do(t, srv, http.MethodPost, "/budget", url.Values{"budget": {"2000.5"}}, false)
		if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
			t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
		}
		if got := led.Snapshot().Budget.Cents; got != 200050 {
			t.Errorf("budget = %d, want 200050", got)
		}
	})
}

func TestCreateExpense(t *testing.T) {
	led := openLedger(t, memory.New())
	srv := startServer(t, led, Config{})

	valid := url.Values{
		"amount":      {"12.50"},
		"description": {"Lunch"},
		"category":    {"Food"},
		"date":        {"2024-03-01"},
	}

	t.Run("invalid keeps input", func(t *testing.T) {
		form := url.Values{"amount": {"12.50"}, "description": {""}, "category": {"Food"}, "date": {"2024-03-01"}}
		rr := do(t, srv, http.MethodPost, "/expenses", form, true)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status=%d, want 422", rr.Code)
		}
		mustContain(t, rr.Body.String(),
			msgInvalidExpense,
			`value="12.50"`,
			`value="2024-03-01"`,
			`<option value="Food" selected>`)
		if n := len(led.Snapshot().Expenses); n != 0 {
			t.Errorf("expenses = %d, want 0", n)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		form := url.Values{"amount": {"5"}, "description": {"x"}, "category": {"Travel"}, "date": {"2024-03-01"}}
		rr := do(t, srv, http.MethodPost, "/expenses", form, false)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status=%d, want 422", rr.Code)
		}
		mustContain(t, rr.Body.String(), "Budget Book", msgInvalidExpense)
	})

	t.Run("valid htmx resets form", func(t *testing.T) {
		rr := do(t, srv, http.MethodPost, "/expenses", valid, true)
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d", rr.Code)
		}
		trigger := rr.Header().Get("HX-Trigger")
		for _, ev := range []string{EventLedgerChanged, EventFormReset} {
			if !strings.Contains(trigger, ev) {
				t.Errorf("HX-Trigger %q missing %q", trigger, ev)
			}
		}
		body := rr.Body.String()
		mustContain(t, body, `value="2024-03-15"`, `class="error hidden"`)
		if strings.Contains(body, `value="Lunch"`) {
			t.Error("form was not cleared")
		}
		if n := len(led.Snapshot().Expenses); n != 1 {
			t.Errorf("expenses = %d, want 1", n)
		}
	})

	t.Run("valid redirects", func(t *testing.T) {
		rr := do(t, srv, http.MethodPost, "/expenses", valid, false)
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("status=%d, want 303", rr.Code)
		}
		if n := len(led.Snapshot().Expenses); n != 2 {
			t.Errorf("duplicate expense not recorded, have %d", n)
		}
	})
}

func TestDeleteExpense(t *testing.T) {
	led := openLedger(t, memory.New())
	srv := startServer(t, led, Config{})
	ctx := context.Background()

	add := func() core.Expense {
		e, err := led.AddExpense(ctx, core.ExpenseInput{Amount: "10", Description: "Bus", Category: "Transport", Date: "2024-03-02"})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		return e
	}
	first, second, third := add(), add(), add()

	rr := do(t, srv, http.MethodDelete, "/expenses/"+itoa(first.ID), nil, true)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("HX-Trigger"), EventLedgerChanged) {
		t.Fatalf("htmx delete status=%d trigger=%q", rr.Code, rr.Header().Get("HX-Trigger"))
	}

	rr = do(t, srv, http.MethodPost, "/expenses/"+itoa(second.ID), url.Values{}, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("form delete status=%d, want 303", rr.Code)
	}

	rr = do(t, srv, http.MethodDelete, "/expenses/"+itoa(third.ID), nil, false)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("plain delete status=%d, want 204", rr.Code)
	}

	if n := len(led.Snapshot().Expenses); n != 0 {
		t.Fatalf("expenses left = %d", n)
	}

	rr = do(t, srv, http.MethodDelete, "/expenses/42", nil, true)
	if rr.Code != http.StatusOK {
		t.Errorf("missing id should be a no-op, got %d", rr.Code)
	}

	rr = do(t, srv, http.MethodDelete, "/expenses/abc", nil, true)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id status=%d, want 400", rr.Code)
	}
}

func TestDashboardAndChart(t *testing.T) {
	led := openLedger(t, memory.New())
	srv := startServer(t, led, Config{CurrencySymbol: "₹"})
	ctx := context.Background()

	if _, err := led.SetBudget(ctx, "600"); err != nil {
		t.Fatal(err)
	}
	for _, in := range []core.ExpenseInput{
		{Amount: "250", Description: "Groceries", Category: "Food", Date: "2024-03-01"},
		{Amount: "250", Description: "March rent", Category: "Rent", Date: "2024-03-05"},
	} {
		if _, err := led.AddExpense(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	rr := do(t, srv, http.MethodGet, "/ui/dashboard", nil, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d", rr.Code)
	}
	body := rr.Body.String()
	mustContain(t, body,
		"₹600.00",
		"₹500.00",
		`class="low">₹100.00`,
		"bg-cyan-100 text-cyan-800",
		"bg-emerald-100 text-emerald-800",
		"05 Mar 2024",
		`title="Food: ₹250.00 (50%)"`,
		`title="Rent: ₹250.00 (50%)"`,
		"<svg",
	)
	if strings.Index(body, "March rent") > strings.Index(body, "Groceries") {
		t.Error("table is not sorted newest first")
	}
	if strings.Contains(body, "No expenses added yet") {
		t.Error("empty-state row shown with expenses present")
	}

	rr = do(t, srv, http.MethodGet, "/ui/chart.svg", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("chart status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("chart Content-Type = %q", ct)
	}
	mustContain(t, rr.Body.String(), "<svg", "Food 50%", "Rent 50%")
}

func TestLedgerJSON(t *testing.T) {
	led := openLedger(t, memory.New())
	srv := startServer(t, led, Config{})
	ctx := context.Background()

	if _, err := led.SetBudget(ctx, "1000"); err != nil {
		t.Fatal(err)
	}
	if _, err := led.AddExpense(ctx, core.ExpenseInput{Amount: "99.99", Description: "Power", Category: "Utilities", Date: "2024-03-03"}); err != nil {
		t.Fatal(err)
	}

	rr := do(t, srv, http.MethodGet, "/api/ledger", nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var got ledgerResponse
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BudgetCents != 100000 || got.SpentCents != 9999 || got.RemainingCents != 90001 {
		t.Errorf("totals = %+v", got)
	}
	if got.Low {
		t.Error("900.01 remaining should not be low")
	}
	if len(got.Breakdown) != len(core.Categories()) {
		t.Errorf("breakdown has %d entries", len(got.Breakdown))
	}
	if len(got.Expenses) != 1 || got.Expenses[0].Date != "2024-03-03" || got.Expenses[0].Category != "Utilities" {
		t.Errorf("expenses = %+v", got.Expenses)
	}
}

func TestStoreFailures(t *testing.T) {
	led := openLedger(t, brokenStore{Store: memory.New()})
	srv := startServer(t, led, Config{})

	rr := do(t, srv, http.MethodPost, "/budget", url.Values{"budget": {"100"}}, true)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rr.Code)
	}
	mustContain(t, rr.Body.String(), msgServerError)
	if got := led.Snapshot().Budget.Cents; got != 0 {
		t.Errorf("budget should roll back, got %d", got)
	}

	rr = do(t, srv, http.MethodGet, "/readyz", nil, false)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status=%d, want 503", rr.Code)
	}
}

func TestMiddlewareChain(t *testing.T) {
	srv := startServer(t, openLedger(t, memory.New()), Config{RateLimitPerMinute: 2})

	rr := do(t, srv, http.MethodGet, "/", nil, false)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("request ID header missing")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	if rr := do(t, srv, http.MethodGet, "/.env", nil, false); rr.Code != http.StatusNotFound {
		t.Errorf("suspicious request status=%d, want 404", rr.Code)
	}

	form := url.Values{"budget": {"10"}}
	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/budget", form, true); rr.Code != http.StatusOK {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr = do(t, srv, http.MethodPost, "/budget", form, true)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}

	rr = do(t, srv, http.MethodGet, "/metrics", nil, false)
	mustContain(t, rr.Body.String(),
		"rate_limit_hits_total 1",
		"suspicious_requests_total 1",
		"ledger_budget_cents 1000",
	)
}
