// Package http serves the finance tracker's HTML pages, JSON data and exports.
package http

import (
	"context"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	appweb "fintrack/web"
)

// Finance is the application surface the handlers call.
type Finance interface {
	Register(ctx context.Context, username, password string) (core.User, error)
	Authenticate(ctx context.Context, username, password string) (core.User, error)

	Overview(ctx context.Context, userID int64) (services.Overview, error)
	Alerts(ctx context.Context, userID int64) (core.AlertReport, error)
	Categories(ctx context.Context, userID int64) ([]string, error)

	AddTransaction(ctx context.Context, userID int64, in services.NewTransaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id int64, category string, amount core.Money) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error

	SetBudget(ctx context.Context, userID int64, in services.NewBudget) (services.BudgetResult, error)
	SetCategoryBudget(ctx context.Context, userID int64, category string, limit core.Money) error

	ImportDatasetFile(ctx context.Context, userID int64, path string) (int, error)
	ExportPDF(ctx context.Context, userID int64, w io.Writer) error
	ExportXLSX(ctx context.Context, userID int64, w io.Writer) error
	ExportCSV(ctx context.Context, userID int64, w io.Writer) error

	Ping(ctx context.Context) error
}

// Options configures NewServer.
type Options struct {
	Addr               string
	Sessions           *auth.Sessions
	Logger             *applog.Logger
	DatasetPath        string
	RateLimitPerMinute int

	// CacheStats reports the overview cache on /metrics. Optional.
	CacheStats func() cache.Stats
}

type Server struct {
	http.Server
	finance     Finance
	sessions    *auth.Sessions
	templates   *template.Template
	logger      *applog.Logger
	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	cacheStats  func() cache.Stats
	datasetPath string
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(finance Finance, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	rlCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	detector := security.NewDetector()
	s := &Server{
		finance:     finance,
		sessions:    opts.Sessions,
		templates:   parseTemplates(),
		logger:      logger,
		tracer:      trace.NewMiddleware(logger, detector.ExtractClientIP),
		rateLimiter: ratelimit.NewLimiter(rlCfg),
		detector:    detector,
		cacheStats:  opts.CacheStats,
		datasetPath: opts.DatasetPath,
		started:     time.Now(),
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(security.NoStoreMiddleware)

		r.Get("/", s.handleIndex)
		r.Get("/register", s.handleRegisterForm)
		r.Post("/register", s.handleRegister)
		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)

		// Authenticated pages
		r.Group(func(r chi.Router) {
			r.Use(s.sessions.RequireUser)

			r.Get("/dashboard", s.handleDashboard)
			r.Get("/dashboard_data.json", s.handleDashboardData)
			r.Get("/budget_alerts", s.handleBudgetAlerts)

			r.Get("/transactions", s.handleTransactions)
			r.Post("/transactions", s.handleAddRecord)
			r.Post("/add_record", s.handleAddRecord)
			r.Get("/edit_record/{id}", s.handleEditRecordForm)
			r.Post("/edit_record/{id}", s.handleEditRecord)
			r.Post("/delete_record/{id}", s.handleDeleteRecord)

			r.Post("/set_budget_limit", s.handleSetBudgetLimit)
			r.Post("/set_category_budget_limit", s.handleSetCategoryBudgetLimit)

			r.Get("/export_pdf", s.handleExportPDF)
			r.Get("/export_excel", s.handleExportExcel)
			r.Get("/export_csv", s.handleExportCSV)
			r.Get("/load_dataset", s.handleLoadDataset)
		})
	})

	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// Shutdown stops the rate limiter and gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
