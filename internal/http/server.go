// Package http exposes the snapshot endpoint, the façade mutations and the
// derived report views over JSON.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"kobo/internal/backend"
	"kobo/internal/cache"
	"kobo/internal/log"
	"kobo/internal/middleware/ratelimit"
	"kobo/internal/middleware/security"
	"kobo/internal/middleware/trace"
	"kobo/internal/report"
	"kobo/internal/syncer"
)

const (
	snapshotTimeout = 10 * time.Second
	dashboardTTL    = 5 * time.Minute
	dashboardSize   = 16
)

// Deps are the collaborators a Server needs. Core is the server's own sync
// core; it serves the report views and is refreshed after every mutation.
type Deps struct {
	Store  backend.Store
	Facade syncer.Facade
	Core   *syncer.Core
	Logger *log.Logger
	// TrustedProxies are extra CIDRs whose forwarded-for headers are honored.
	TrustedProxies []string
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	store  backend.Store
	facade syncer.Facade
	core   *syncer.Core
	logger *log.Logger
	now    func() time.Time

	dashboardCache *cache.LRUCache[report.DashboardView]
	cacheManager   *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	started          time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentHTTP, Handler: slog.Default().Handler()})
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		store:            deps.Store,
		facade:           deps.Facade,
		core:             deps.Core,
		logger:           logger,
		now:              now,
		dashboardCache:   cache.NewLRUCache[report.DashboardView](dashboardSize, dashboardTTL),
		cacheManager:     cache.NewManager(logger.Logger),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		securityDetector: security.NewDetector(),
		started:          now(),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.securityDetector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)
	s.cacheManager.Register(s.dashboardCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("GET /api/initial-data", s.handleInitialData)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/reports", s.handleReport)
	mux.HandleFunc("GET /api/reports/export.csv", s.handleReportCSV)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/sales", s.handleListSales)
	mux.HandleFunc("GET /api/products", s.handleListProducts)

	mux.HandleFunc("POST /api/expenses", s.handleAddExpense)
	mux.HandleFunc("POST /api/expenses/bulk", s.handleBulkAddExpenses)
	mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST /api/products", s.handleAddProduct)
	mux.HandleFunc("PUT /api/products/{id}/stock", s.handleUpdateStock)
	mux.HandleFunc("DELETE /api/products/{id}", s.handleDeleteProduct)
	mux.HandleFunc("POST /api/sales", s.handleAddSale)
	mux.HandleFunc("POST /api/sales/bulk", s.handleBulkAddSales)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, nil)(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
