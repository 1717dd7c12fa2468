package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/ledger"
	applog "budgetbook/internal/log"
	"budgetbook/internal/middleware/ratelimit"
	"budgetbook/internal/middleware/security"
	"budgetbook/internal/middleware/trace"
	appweb "budgetbook/web"
)

// Ledger is the application state the handlers drive. *ledger.Ledger
// satisfies it.
type Ledger interface {
	SetBudget(ctx context.Context, raw string) (core.Money, error)
	AddExpense(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) (bool, error)
	Snapshot() ledger.View
	Today() core.Date
	Ping(ctx context.Context) error
}

// Config holds the presentation settings.
type Config struct {
	Addr               string
	CurrencySymbol     string
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates *template.Template
	ledger    Ledger
	logger    *applog.Logger
	currency  string
	started   time.Time

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates, registers routes and wraps them in
// the middleware chain, returning a ready-to-run server.
func NewServer(cfg Config, led Ledger, logger *applog.Logger) (*Server, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	httpLogger := logger.WithComponent(applog.ComponentHTTP)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	currency := cfg.CurrencySymbol
	if currency == "" {
		currency = DefaultCurrencySymbol
	}

	detector := security.NewDetector()
	s := &Server{
		templates:        t,
		ledger:           led,
		logger:           httpLogger,
		currency:         currency,
		started:          time.Now(),
		securityDetector: detector,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
		traceMiddleware: trace.NewMiddleware(httpLogger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /budget", s.handleSetBudget)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	// UI partials
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /ui/chart.svg", s.handleChart)

	mux.HandleFunc("GET /api/ledger", s.handleLedgerJSON)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
}

// middleware wraps h, outermost first: context logger, tracing, request ID
// tagging, scanner detection, security headers, rate limiting.
func (s *Server) middleware(h http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited)(h)
	h = headers.Middleware(h)
	h = s.securityDetector.Middleware(h)
	h = applog.RequestIDMiddleware(trace.GetRequestID)(h)
	h = s.traceMiddleware.Middleware(h)
	return applog.Middleware(s.logger)(h)
}

// Shutdown stops background work and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
