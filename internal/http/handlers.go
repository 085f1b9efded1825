package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kobo/internal/core"
	"kobo/internal/log"
	"kobo/internal/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).String(),
	}).Write(w)
}

// handleReady reports ready once the server's sync core holds a snapshot
// and its last fetch succeeded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.core == nil {
		checks["syncer"] = "not_configured"
	} else {
		st := s.core.State()
		switch {
		case st.ConnectionError:
			checks["syncer"] = "failed: store unreachable"
			status, code = "not_ready", http.StatusServiceUnavailable
		case st.Generation == 0:
			checks["syncer"] = "loading"
			status, code = "not_ready", http.StatusServiceUnavailable
		default:
			checks["syncer"] = "ok"
		}
	}
	checks["cache"] = map[string]any{"dashboard_entries": s.dashboardCache.Size()}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

type statusBody struct {
	Loading             bool   `json:"loading"`
	ConnectionError     bool   `json:"connectionError"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	Generation          uint64 `json:"generation"`
	Requests            int64  `json:"requests"`
	RateLimitHits       int64  `json:"rateLimitHits"`
	SuspiciousRequests  int64  `json:"suspiciousRequests"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	body := statusBody{
		Requests:           s.traceMiddleware.GetMetrics().TotalRequests,
		RateLimitHits:      s.rateLimiter.GetMetrics().TotalHits,
		SuspiciousRequests: s.securityDetector.GetMetrics().SuspiciousRequests,
	}
	if s.core != nil {
		st := s.core.State()
		body.Loading = st.Loading
		body.ConnectionError = st.ConnectionError
		body.ConsecutiveFailures = st.ConsecutiveFailures
		body.Generation = st.Generation
	}
	NewJSONResponse().NoStore().Body(body).Write(w)
}

// handleInitialData serves the full snapshot straight from the store. A
// store failure is logged and answered with four empty arrays, so clients
// only see transport-level failures.
func (s *Server) handleInitialData(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()

	raw, err := s.store.Snapshot(ctx)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Error fetching initial data",
			log.FieldError, err,
			log.FieldComponent, log.ComponentHTTP,
			"error_type", log.ErrorTypeDatabase)
		raw = core.EmptyRawSnapshot()
	}
	NewJSONResponse().NoStore().Body(nonNil(raw)).Write(w)
}

func nonNil(raw core.RawSnapshot) core.RawSnapshot {
	if raw.Products == nil {
		raw.Products = []core.ProductRow{}
	}
	if raw.Sales == nil {
		raw.Sales = []core.SaleRow{}
	}
	if raw.Expenses == nil {
		raw.Expenses = []core.ExpenseRow{}
	}
	if raw.Categories == nil {
		raw.Categories = []core.CategoryRow{}
	}
	return raw
}

// handleDashboard serves the dashboard view, cached per snapshot generation
// and calendar month.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.core == nil {
		ErrorResponse(http.StatusServiceUnavailable, "dashboard unavailable").Write(w)
		return
	}
	st := s.core.State()
	now := s.now()
	key := fmt.Sprintf("%d:%s", st.Generation, now.Format("2006-01"))

	view, _ := s.dashboardCache.GetOrCompute(key, func() (report.DashboardView, error) {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Dashboard computed",
			log.FieldGeneration, st.Generation)
		return report.Dashboard(st.Snapshot, now), nil
	})
	NewJSONResponse().
		Header("Cache-Control", "no-cache").
		Body(view).
		Write(w)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.core == nil {
		ErrorResponse(http.StatusServiceUnavailable, "reports unavailable").Write(w)
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.now())
	summary := report.PeriodSummary(s.core.Snapshot(), p.Year, p.Month)
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	if s.core == nil {
		ErrorResponse(http.StatusServiceUnavailable, "reports unavailable").Write(w)
		return
	}
	p := ParseMonthParams(r.URL.Query(), s.now())
	snap := s.core.Snapshot()
	summary := report.PeriodSummary(snap, p.Year, p.Month)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="report-%04d-%02d.csv"`, p.Year, int(p.Month)))
	if err := report.WriteCSV(w, summary, snap.Expenses); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Report export failed",
			log.FieldError, err, log.FieldYear, p.Year, log.FieldMonth, int(p.Month))
	}
}

// handleListExpenses serves the synced expenses matching ?q= and ?category=.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	if s.core == nil {
		ErrorResponse(http.StatusServiceUnavailable, "expenses unavailable").Write(w)
		return
	}
	q := r.URL.Query()
	lines := report.ExpenseList(s.core.Snapshot().Expenses, q.Get("q"), q.Get("category"))
	NewJSONResponse().Header("Cache-Control", "no-cache").Body(lines).Write(w)
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	if s.core == nil {
		ErrorResponse(http.StatusServiceUnavailable, "sales unavailable").Write(w)
		return
	}
	lines := report.SaleList(s.core.Snapshot().Sales, r.URL.Query().Get("q"))
	NewJSONResponse().Header("Cache-Control", "no-cache").Body(lines).Write(w)
}

// handleListProducts serves products with their stock status. ?status= takes
// one of the status labels, e.g. "Low Stock".
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if s.core == nil {
		ErrorResponse(http.StatusServiceUnavailable, "products unavailable").Write(w)
		return
	}
	q := r.URL.Query()
	status := report.StockStatus(q.Get("status"))
	switch status {
	case "", report.OutOfStock, report.LowStockStatus, report.InStock:
	default:
		ErrorResponse(http.StatusBadRequest, "unknown stock status").Write(w)
		return
	}
	lines := report.ProductList(s.core.Snapshot().Products, q.Get("q"), status)
	NewJSONResponse().Header("Cache-Control", "no-cache").Body(lines).Write(w)
}
