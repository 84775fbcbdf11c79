package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/kestrel/internal/assessment"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/registry"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	service   *assessment.Service
	registry  *registry.Registry
	engineCfg *domain.EngineConfig
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, service *assessment.Service, reg *registry.Registry, engineCfg *domain.EngineConfig, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		service:   service,
		registry:  reg,
		engineCfg: engineCfg,
		version:   version,
	}
}

// RunAssessment handles POST /assessments requests: one questionnaire
// submission in, a scored assessment with a signed passport out.
func (h *Handler) RunAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req domain.AssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.SubjectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "subjectId is required",
		})
		return
	}
	if len(req.Answers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "answers must not be empty",
		})
		return
	}

	result, err := h.service.Run(ctx, tenantID, traceID, req)
	if err != nil {
		slog.Error("assessment failed", "subject_id", req.SubjectID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "assessment failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetAssessment retrieves an assessment by ID.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	assessmentID := chi.URLParam(r, "id")

	if assessmentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "assessment id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	a, err := h.repo.GetAssessment(ctx, tenantID, assessmentID)
	if err != nil {
		slog.Error("failed to get assessment", "id", assessmentID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "assessment not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// GetAssessmentAlerts returns just the alerts raised by an assessment.
func (h *Handler) GetAssessmentAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	assessmentID := chi.URLParam(r, "id")

	if assessmentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "assessment id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	a, err := h.repo.GetAssessment(ctx, tenantID, assessmentID)
	if err != nil {
		slog.Error("failed to get assessment", "id", assessmentID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "assessment not found",
		})
		return
	}

	alerts := a.Alerts
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assessmentId": a.ID,
		"alerts":       alerts,
		"count":        len(alerts),
	})
}

// ListSubjectAssessments retrieves a subject's assessment history.
func (h *Handler) ListSubjectAssessments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	subjectID := chi.URLParam(r, "id")

	if subjectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "subject id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	since := time.Time{}
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "since must be an RFC3339 timestamp",
			})
			return
		}
		since = parsed
	}

	assessments, err := h.repo.ListAssessmentsBySubject(ctx, tenantID, subjectID, since)
	if err != nil {
		slog.Error("failed to list assessments", "subject_id", subjectID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list assessments",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assessments": assessments,
		"count":       len(assessments),
	})
}

// GetPassport retrieves an issued passport by ID, cache first.
func (h *Handler) GetPassport(w http.ResponseWriter, r *http.Request) {
	p := h.loadPassport(w, r)
	if p == nil {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetPassportToken exports a stored passport as a signed JWT.
func (h *Handler) GetPassportToken(w http.ResponseWriter, r *http.Request) {
	p := h.loadPassport(w, r)
	if p == nil {
		return
	}

	token, err := h.service.Token(*p)
	if err != nil {
		slog.Error("failed to export passport token", "passport_id", p.PassportID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to export token",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"passportId": p.PassportID,
		"token":      token,
	})
}

// loadPassport resolves the {id} path parameter against the cache and then
// the repository. Writes the error response and returns nil on failure.
func (h *Handler) loadPassport(w http.ResponseWriter, r *http.Request) *domain.Passport {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	passportID := chi.URLParam(r, "id")

	if passportID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "passport id is required",
		})
		return nil
	}

	if h.cache != nil {
		if p, err := h.cache.GetPassport(ctx, tenantID, passportID); err == nil && p != nil {
			return p
		}
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return nil
	}

	p, err := h.repo.GetPassport(ctx, tenantID, passportID)
	if err != nil {
		slog.Error("failed to get passport", "id", passportID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "passport not found",
		})
		return nil
	}

	return p
}

// VerifyPassport handles POST /passports/verify. The body is a full passport
// document as presented by a third party. Bad credentials are a 200 with
// valid=false; only malformed JSON is a client error.
func (h *Handler) VerifyPassport(w http.ResponseWriter, r *http.Request) {
	var p domain.Passport
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	result := h.service.Verify(p)
	writeJSON(w, http.StatusOK, result)
}

// MarketInfo is the public projection of a market configuration.
type MarketInfo struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	ReadyThreshold   int    `json:"readyThreshold"`
	PendingThreshold int    `json:"pendingThreshold"`
	AlertRuleCount   int    `json:"alertRuleCount"`
	GuardRuleCount   int    `json:"guardRuleCount"`
	Default          bool   `json:"default"`
}

// ListMarkets returns the configured markets.
func (h *Handler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets := make([]MarketInfo, 0, len(h.engineCfg.Markets))
	for code, m := range h.engineCfg.Markets {
		markets = append(markets, MarketInfo{
			Code:             string(code),
			Name:             m.Name,
			ReadyThreshold:   m.ReadyThreshold,
			PendingThreshold: m.PendingThreshold,
			AlertRuleCount:   len(m.AlertRules),
			GuardRuleCount:   len(m.GuardRules),
			Default:          code == h.engineCfg.DefaultMarket,
		})
	}
	sort.Slice(markets, func(i, j int) bool { return markets[i].Code < markets[j].Code })

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"markets": markets,
		"count":   len(markets),
	})
}

// ListFeatures returns the registered question-to-feature definitions.
func (h *Handler) ListFeatures(w http.ResponseWriter, r *http.Request) {
	defs := h.registry.Definitions()
	sort.Slice(defs, func(i, j int) bool { return defs[i].QuestionID < defs[j].QuestionID })

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"features": defs,
		"count":    len(defs),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
