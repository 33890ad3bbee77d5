package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
)

// Service ports consumed by the handlers.
type (
	ExpenseLister interface {
		List(ctx context.Context, ownerID string, q core.ListQuery) (core.ListResult, error)
	}

	MonthSummarizer interface {
		Summarize(ctx context.Context, ownerID, month string) (core.SummaryResult, error)
	}

	ExpenseManager interface {
		CreateExpense(ctx context.Context, ownerID string, in core.ExpenseInput) (core.Expense, error)
		UpdateExpense(ctx context.Context, ownerID string, id int64, patch core.ExpensePatch) (core.Expense, error)
		DeleteExpense(ctx context.Context, ownerID string, id int64) error
	}

	CategoryManager interface {
		ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
		CreateCategory(ctx context.Context, ownerID, name string) (core.Category, error)
		RenameCategory(ctx context.Context, ownerID string, id int64, name string) (core.Category, error)
		DeleteCategory(ctx context.Context, ownerID string, id int64) error
		CreateDefaultCategories(ctx context.Context, ownerID string) ([]core.Category, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Options configures the transport concerns of the server.
type Options struct {
	Addr               string
	JWTSecret          []byte
	CORSOrigin         string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs allowed to set forwarding headers, on top of
	// loopback and private networks.
	TrustedProxies []string
	Logger         *applog.Logger
}

// Dependencies are the services behind the handlers. Summaries may be nil.
type Dependencies struct {
	Lister     ExpenseLister
	Summarizer MonthSummarizer
	Expenses   ExpenseManager
	Categories CategoryManager
	Store      Pinger
	Summaries  *cache.SummaryCache
}

type Server struct {
	http.Server
	lister     ExpenseLister
	summarizer MonthSummarizer
	expenses   ExpenseManager
	categories CategoryManager
	store      Pinger
	summaries  *cache.SummaryCache

	auth     *Authenticator
	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures the routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(opts Options, deps Dependencies) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		lister:     deps.Lister,
		summarizer: deps.Summarizer,
		expenses:   deps.Expenses,
		categories: deps.Categories,
		store:      deps.Store,
		summaries:  deps.Summaries,
		auth:       NewAuthenticator(opts.JWTSecret),
		detector:   detector,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		tracer: trace.NewMiddleware(detector.ExtractClientIP),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(applog.Middleware(logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	}))
	r.Use(applog.ComponentMiddleware(applog.ComponentHTTP))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(security.CORSMiddleware(opts.CORSOrigin))
	r.Use(detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusNotFound, ErrorBody{Error: ErrorDetail{Message: "Route not found", Code: CodeNotFound}})
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleAPIHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Use(s.limitWrites)

			r.Get("/expenses", s.handleListExpenses)
			r.Post("/expenses", s.handleCreateExpense)
			r.Put("/expenses/{id}", s.handleUpdateExpense)
			r.Delete("/expenses/{id}", s.handleDeleteExpense)

			r.Get("/summary", s.handleSummary)

			r.Get("/categories", s.handleListCategories)
			r.Post("/categories", s.handleCreateCategory)
			r.Post("/categories/defaults", s.handleSeedCategories)
			r.Put("/categories/{id}", s.handleRenameCategory)
			r.Delete("/categories/{id}", s.handleDeleteCategory)
		})
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// limitWrites rate limits mutating requests per owner, falling back to the
// client address.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.rateLimitKey, s.handleRateLimited)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
		default:
			limited.ServeHTTP(w, r)
		}
	})
}

func (s *Server) rateLimitKey(r *http.Request) string {
	if owner, ok := OwnerFromContext(r.Context()); ok {
		return "owner:" + owner
	}
	return "ip:" + s.detector.ExtractClientIP(r)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded",
		"key", s.rateLimitKey(r),
		"method", r.Method,
		"path", r.URL.Path)
	writeJSON(w, r, http.StatusTooManyRequests, ErrorBody{Error: ErrorDetail{
		Message: "Rate limit exceeded. Please try again later.",
		Code:    CodeRateLimited,
	}})
}

// Shutdown gracefully shuts down the server and the limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// mustOwner returns the owner set by the auth middleware.
func mustOwner(r *http.Request) string {
	owner, _ := OwnerFromContext(r.Context())
	return owner
}
