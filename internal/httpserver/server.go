package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/radiusdt/contact-ledger/internal/cache"
	"github.com/radiusdt/contact-ledger/internal/config"
	"github.com/radiusdt/contact-ledger/internal/database"
	"github.com/radiusdt/contact-ledger/internal/ledger"
	"github.com/radiusdt/contact-ledger/internal/metrics"
	"github.com/radiusdt/contact-ledger/internal/middleware"
	"github.com/radiusdt/contact-ledger/internal/models"
	"github.com/radiusdt/contact-ledger/internal/reporting"
	"github.com/radiusdt/contact-ledger/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Dependencies holds all external dependencies for the server.
type Dependencies struct {
	DB      *database.PostgresDB
	Redis   *database.RedisDB
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Server wraps HTTP handlers around the ledger and reporting services.
type Server struct {
	writer           *ledger.EntryWriter
	store            storage.LedgerStore
	reportingService *reporting.ReportingService
	logger           *zap.Logger
	config           *config.Config
	metrics          *metrics.Metrics
}

// NewServer constructs a new http.Handler with all routes registered and the
// middleware chain applied.
func NewServer(deps *Dependencies) http.Handler {
	// Typed-nil guard: interfaces holding a nil *Metrics are not nil.
	var cacheStats storage.CacheStats
	var reportStats reporting.ReportStats
	if deps.Metrics != nil {
		cacheStats = deps.Metrics
		reportStats = deps.Metrics
	}

	// Initialize the ledger store
	var store storage.LedgerStore
	if deps.DB != nil {
		qc := newQueryCache(deps)
		store = storage.NewPostgresLedgerStore(deps.DB.Pool, qc, deps.Config.Cache.TTL, cacheStats, deps.Logger)
	} else {
		store = storage.NewInMemoryLedgerStore()
	}

	registry := ledger.NewTypeRegistry()
	writer := ledger.NewEntryWriter(store, registry, deps.Logger)
	reportingSvc := reporting.NewReportingService(store, deps.Logger, reportStats)

	s := &Server{
		writer:           writer,
		store:            store,
		reportingService: reportingSvc,
		logger:           deps.Logger,
		config:           deps.Config,
		metrics:          deps.Metrics,
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	if deps.Config.Metrics.Enabled {
		mux.Handle(deps.Config.Metrics.Path, metrics.Handler())
	}

	// Event ingestion
	mux.HandleFunc("/events/financial", s.handleFinancialEvent)
	mux.HandleFunc("/events/attribution", s.handleAttributionEvent)

	// Campaign reporting
	mux.HandleFunc("/campaigns/", s.handleCampaignRevenue)

	// Dashboard
	mux.HandleFunc("/dashboard/revenue", s.handleDashboardRevenue)

	// Middleware chain: recovery outermost, then logging, auth, rate limit.
	rl := middleware.NewRateLimitMiddleware(deps.Config.RateLimit, deps.Logger)
	if deps.Metrics != nil {
		rl.SetMetrics(deps.Metrics)
	}

	var handler http.Handler = mux
	handler = rl.Handler(handler)
	handler = middleware.NewAuthMiddleware(deps.Config.Auth, deps.Logger).Handler(handler)
	handler = middleware.NewLoggingMiddleware(deps.Logger).Handler(handler)
	handler = middleware.NewRecoveryMiddleware(deps.Logger).Handler(handler)

	return handler
}

// newQueryCache builds the configured cache backend, degrading to nil (no
// caching) when the backend is unavailable.
func newQueryCache(deps *Dependencies) cache.QueryCache {
	switch deps.Config.Cache.Backend {
	case "redis":
		if deps.Redis != nil {
			return cache.NewRedisCache(deps.Redis.Client)
		}
		deps.Logger.Warn("redis cache configured but redis unavailable, query caching disabled")
		return nil
	case "filesystem":
		fc, err := cache.NewFilesystemCache(deps.Config.Cache.Dir)
		if err != nil {
			deps.Logger.Warn("filesystem cache unavailable, query caching disabled",
				zap.String("dir", deps.Config.Cache.Dir),
				zap.Error(err),
			)
			return nil
		}
		return fc
	case "memory":
		return cache.NewMemoryCache()
	default:
		return nil
	}
}

// ---- Health Check ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ---- Event Ingestion ----

type financialEventRequest struct {
	ContactID  int64            `json:"contact_id"`
	CampaignID *int64           `json:"campaign_id,omitempty"`
	Actor      json.RawMessage  `json:"actor,omitempty"`
	Activity   string           `json:"activity"`
	Cost       *decimal.Decimal `json:"cost,omitempty"`
	Revenue    *decimal.Decimal `json:"revenue,omitempty"`
	Memo       string           `json:"memo,omitempty"`
}

func (s *Server) handleFinancialEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req financialEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	actor, err := ledger.ParseActor(req.Actor)
	if err != nil {
		s.errorResponse(w, "invalid actor: "+err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := s.writer.AddEntry(r.Context(), req.ContactID, req.CampaignID, actor, req.Activity, req.Cost, req.Revenue, req.Memo)
	if err != nil {
		if errors.Is(err, ledger.ErrMissingContact) {
			s.errorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.logger.Error("failed to write ledger entry", zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordWriteError("entry")
		}
		s.errorResponse(w, "failed to write entry", http.StatusInternalServerError)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordEntryWritten(req.Activity)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"event_id": uuid.New().String(),
		"entry_id": entry.ID,
	})
}

type attributionEventRequest struct {
	CampaignID      int64  `json:"campaign_id"`
	ContactSourceID int64  `json:"contact_source_id"`
	ContactID       int64  `json:"contact_id"`
	Type            string `json:"type"`
	CampaignName    string `json:"campaign_name,omitempty"`
	SourceName      string `json:"source_name,omitempty"`
}

func (s *Server) handleAttributionEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req attributionEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, "invalid json", http.StatusBadRequest)
		return
	}

	if req.CampaignID == 0 || req.ContactSourceID == 0 || req.ContactID == 0 || req.Type == "" {
		s.errorResponse(w, "campaign_id, contact_source_id, contact_id and type are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Optional names let the event carry its own dimension rows.
	if req.CampaignName != "" {
		if err := s.store.UpsertCampaign(ctx, &models.Campaign{ID: req.CampaignID, Name: req.CampaignName, IsPublished: true}); err != nil {
			s.logger.Error("failed to upsert campaign", zap.Error(err))
			s.errorResponse(w, "failed to record event", http.StatusInternalServerError)
			return
		}
	}
	if req.SourceName != "" {
		if err := s.store.UpsertContactSource(ctx, &models.ContactSource{ID: req.ContactSourceID, Name: req.SourceName}); err != nil {
			s.logger.Error("failed to upsert contact source", zap.Error(err))
			s.errorResponse(w, "failed to record event", http.StatusInternalServerError)
			return
		}
	}

	stat := &models.AttributionStat{
		CampaignID:      req.CampaignID,
		ContactSourceID: req.ContactSourceID,
		ContactID:       req.ContactID,
		Type:            req.Type,
		DateAdded:       time.Now().UTC(),
	}
	if err := s.store.AddAttributionStat(ctx, stat); err != nil {
		s.logger.Error("failed to write attribution stat", zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordWriteError("attribution")
		}
		s.errorResponse(w, "failed to record event", http.StatusInternalServerError)
		return
	}

	if s.metrics != nil {
		s.metrics.RecordAttributionStat(req.Type)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"event_id": uuid.New().String(),
	})
}

// ---- Campaign Reporting ----

// handleCampaignRevenue routes /campaigns/{id}/revenue/{chart|table}.
func (s *Server) handleCampaignRevenue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/campaigns/"), "/")
	if len(parts) != 3 || parts[1] != "revenue" {
		http.NotFound(w, r)
		return
	}

	campaignID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		s.errorResponse(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	dateFrom, dateTo, err := s.parseDateRange(r)
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	tzOffset := 0
	if v := r.URL.Query().Get("tzOffset"); v != "" {
		tzOffset, err = strconv.Atoi(v)
		if err != nil {
			s.errorResponse(w, "invalid tzOffset", http.StatusBadRequest)
			return
		}
	}

	switch parts[2] {
	case "chart":
		chart, err := s.reportingService.CampaignRevenueChart(r.Context(), campaignID, dateFrom, dateTo, tzOffset)
		if err != nil {
			s.logger.Error("failed to build revenue chart", zap.Error(err))
			s.errorResponse(w, "failed to build report", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, chart)

	case "table":
		rows, err := s.reportingService.CampaignRevenueTable(r.Context(), campaignID, dateFrom, dateTo, tzOffset)
		if err != nil {
			s.logger.Error("failed to build revenue table", zap.Error(err))
			s.errorResponse(w, "failed to build report", http.StatusInternalServerError)
			return
		}
		s.jsonResponse(w, rows)

	default:
		http.NotFound(w, r)
	}
}

// ---- Dashboard ----

func (s *Server) handleDashboardRevenue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dateFrom, dateTo, err := s.parseDateRange(r)
	if err != nil {
		s.errorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.errorResponse(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}
	bySource := q.Get("bySource") == "true" || q.Get("bySource") == "1"

	data, err := s.reportingService.DashboardRevenueWidget(r.Context(), reporting.WidgetParams{
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Limit:    limit,
		BySource: bySource,
	})
	if err != nil {
		s.logger.Error("failed to build dashboard widget", zap.Error(err))
		s.errorResponse(w, "failed to build report", http.StatusInternalServerError)
		return
	}

	s.jsonResponse(w, data)
}

// ---- Helper Methods ----

// parseDateRange reads dateFrom/dateTo query params. Missing values default
// to the trailing 30 days.
func (s *Server) parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()

	dateTo := time.Now().UTC()
	if v := q.Get("dateTo"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid dateTo")
		}
		dateTo = t
	}

	dateFrom := dateTo.AddDate(0, 0, -30)
	if v := q.Get("dateFrom"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid dateFrom")
		}
		dateFrom = t
	}

	if dateFrom.After(dateTo) {
		return time.Time{}, time.Time{}, errors.New("dateFrom is after dateTo")
	}

	return dateFrom, dateTo, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
