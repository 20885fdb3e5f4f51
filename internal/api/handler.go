package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rajasatyajit/DisasterWatch/config"
	"github.com/rajasatyajit/DisasterWatch/internal/logger"
	middlewares "github.com/rajasatyajit/DisasterWatch/internal/middleware"
	"github.com/rajasatyajit/DisasterWatch/internal/models"
	"github.com/rajasatyajit/DisasterWatch/internal/pipeline"
	"github.com/rajasatyajit/DisasterWatch/internal/store"
)

// Ingestor is the pipeline surface the API drives
type Ingestor interface {
	RunAll(ctx context.Context) (pipeline.Report, error)
	DryRun(ctx context.Context, feedURL string) ([]models.Incident, error)
}

// Handler handles HTTP requests for the API
type Handler struct {
	store       store.Store
	ingestor    Ingestor
	feeds       []config.Feed
	version     string
	buildTime   string
	gitCommit   string
	startTime   time.Time
	adminSecret string
}

// NewHandler creates a new API handler
func NewHandler(store store.Store, ingestor Ingestor, feeds []config.Feed, adminSecret, version, buildTime, gitCommit string) *Handler {
	return &Handler{
		store:       store,
		ingestor:    ingestor,
		feeds:       feeds,
		version:     version,
		buildTime:   buildTime,
		gitCommit:   gitCommit,
		startTime:   time.Now(),
		adminSecret: adminSecret,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {
		// Health check endpoints
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)

		// API endpoints
		r.Get("/feeds", h.getFeedsHandler)
		r.Get("/incidents", h.getIncidentsHandler)
		r.Get("/alerts", h.getAlertsHandler)
		r.Get("/alerts/{id}", h.getAlertHandler)

		// System info
		r.Get("/version", h.versionHandler)
	})

	// Admin routes (protected by shared secret middleware)
	r.Route("/v1/admin", func(r chi.Router) {
		r.With(middlewares.AdminSecret(h.adminSecret)).Group(func(r chi.Router) {
			r.Post("/ingest", h.adminIngest)
			r.Post("/feeds/test", h.adminTestFeed)
		})
	})

	// Root health check
	r.Get("/health", h.healthHandler)
}

// healthHandler provides basic health check
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"store": "ok",
	}

	statusCode := http.StatusOK

	// Check store health
	if err := h.store.Health(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.version,
		"build_time": h.buildTime,
		"git_commit": h.gitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// getFeedsHandler handles GET /feeds
func (h *Handler) getFeedsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"data":  h.feeds,
		"count": len(h.feeds),
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// getIncidentsHandler handles GET /incidents
func (h *Handler) getIncidentsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := h.parseIncidentQuery(r)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	incidents, err := h.store.QueryIncidents(ctx, q)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to query incidents", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := map[string]interface{}{
		"data":      incidents,
		"count":     len(incidents),
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// getAlertsHandler handles GET /alerts
func (h *Handler) getAlertsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := h.parseAlertQuery(r)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := h.store.QueryAlerts(ctx, q)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to query alerts", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := map[string]interface{}{
		"data":      alerts,
		"count":     len(alerts),
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// getAlertHandler handles GET /alerts/{id}
func (h *Handler) getAlertHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	alertID := chi.URLParam(r, "id")

	if alertID == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "alert ID is required")
		return
	}

	alert, err := h.store.GetAlert(ctx, alertID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to get alert", "error", err, "alert_id", alertID)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	if alert == nil {
		h.writeErrorResponse(w, r, http.StatusNotFound, "Alert not found")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	h.writeJSONResponse(w, http.StatusOK, alert)
}

// adminIngest handles POST /admin/ingest: one full pipeline run now
func (h *Handler) adminIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.ingestor.RunAll(ctx)
	if err != nil {
		logger.WithContext(ctx).Error("Manual ingestion run failed", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "ingestion run failed")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, report)
}

type testFeedRequest struct {
	URL string `json:"url"`
}

// adminTestFeed handles POST /admin/feeds/test: dry-run a candidate
// feed URL without persisting anything
func (h *Handler) adminTestFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req testFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "url is required")
		return
	}

	incidents, err := h.ingestor.DryRun(ctx, req.URL)
	if err != nil {
		logger.WithContext(ctx).Warn("Feed test failed", "url", req.URL, "error", err)
		h.writeErrorResponse(w, r, http.StatusBadGateway, fmt.Sprintf("feed test failed: %v", err))
		return
	}

	// Preview only the first few extracted incidents
	preview := incidents
	if len(preview) > 3 {
		preview = preview[:3]
	}

	response := map[string]interface{}{
		"url":       req.URL,
		"incidents": len(incidents),
		"preview":   preview,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// parseIncidentQuery parses query parameters into IncidentQuery
func (h *Handler) parseIncidentQuery(r *http.Request) (models.IncidentQuery, error) {
	q := models.IncidentQuery{}

	limit, offset, since, until, err := parseCommonParams(r)
	if err != nil {
		return q, err
	}
	q.Limit, q.Offset, q.Since, q.Until = limit, offset, since, until

	q.Types = r.URL.Query()["type"]
	q.Sources = r.URL.Query()["source"]
	q.FeedURLs = r.URL.Query()["feed_url"]
	q.Countries = r.URL.Query()["country"]

	return q, nil
}

// parseAlertQuery parses query parameters into AlertQuery
func (h *Handler) parseAlertQuery(r *http.Request) (models.AlertQuery, error) {
	q := models.AlertQuery{}

	limit, offset, since, until, err := parseCommonParams(r)
	if err != nil {
		return q, err
	}
	q.Limit, q.Offset, q.Since, q.Until = limit, offset, since, until

	q.Types = r.URL.Query()["type"]
	q.Severities = r.URL.Query()["severity"]
	q.Regions = r.URL.Query()["region"]

	if activeStr := r.URL.Query().Get("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return q, fmt.Errorf("invalid active flag: %s", activeStr)
		}
		q.ActiveOnly = active
	}

	return q, nil
}

func parseCommonParams(r *http.Request) (limit, offset int, since, until time.Time, err error) {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, since, until, fmt.Errorf("invalid limit: %s", limitStr)
		}
		if limit < 0 || limit > 1000 {
			return 0, 0, since, until, fmt.Errorf("limit must be between 0 and 1000")
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, since, until, fmt.Errorf("invalid offset: %s", offsetStr)
		}
		if offset < 0 {
			return 0, 0, since, until, fmt.Errorf("offset must be non-negative")
		}
	}

	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, err = time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return 0, 0, since, until, fmt.Errorf("invalid since format: %s", sinceStr)
		}
	}

	if untilStr := r.URL.Query().Get("until"); untilStr != "" {
		until, err = time.Parse(time.RFC3339, untilStr)
		if err != nil {
			return 0, 0, since, until, fmt.Errorf("invalid until format: %s", untilStr)
		}
	}

	return limit, offset, since, until, nil
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: r.Header.Get("X-Request-ID"),
	}

	h.writeJSONResponse(w, statusCode, response)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
