package rules

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/convodesk/platform/internal/tenancy"
	"github.com/convodesk/platform/pkg/logging"
)

// Handler handles HTTP requests for rule administration
type Handler struct {
	repo    Repository
	matcher *Matcher
	logger  *logging.Logger
}

// NewHandler creates a new rules handler
func NewHandler(repo Repository, matcher *Matcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:    repo,
		matcher: matcher,
		logger:  logger,
	}
}

// ListRulesResponse is the response for listing rules
type ListRulesResponse struct {
	Rules      []*Rule `json:"rules"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}

// List handles GET /admin/rules
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing business context", http.StatusBadRequest)
		return
	}

	page := 1
	limit := 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}

	filter := ListRulesFilter{
		Intent: r.URL.Query().Get("intent"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if activeStr := r.URL.Query().Get("is_active"); activeStr != "" {
		if active, err := strconv.ParseBool(activeStr); err == nil {
			filter.IsActive = &active
		}
	}

	ruleSet, total, err := h.repo.List(r.Context(), businessID, filter)
	if err != nil {
		h.logger.Error("failed to list rules", "error", err, "business_id", businessID)
		http.Error(w, "failed to list rules", http.StatusInternalServerError)
		return
	}
	if ruleSet == nil {
		ruleSet = []*Rule{}
	}

	writeJSON(w, http.StatusOK, ListRulesResponse{
		Rules:      ruleSet,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	})
}

// Create handles POST /admin/rules
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing business context", http.StatusBadRequest)
		return
	}

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.BusinessID = businessID

	rule, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create rule", "error", err, "business_id", businessID)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info("rule created", "id", rule.ID, "intent", rule.Intent, "business_id", businessID)
	writeJSON(w, http.StatusCreated, rule)
}

// Get handles GET /admin/rules/{ruleID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing business context", http.StatusBadRequest)
		return
	}

	rule, err := h.repo.GetByID(r.Context(), businessID, chi.URLParam(r, "ruleID"))
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			http.Error(w, "rule not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get rule", "error", err)
		http.Error(w, "failed to get rule", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// Update handles PUT /admin/rules/{ruleID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing business context", http.StatusBadRequest)
		return
	}

	var req UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rule, err := h.repo.Update(r.Context(), businessID, chi.URLParam(r, "ruleID"), &req)
	if err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			http.Error(w, "rule not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update rule", "error", err)
		http.Error(w, "failed to update rule", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// Delete handles DELETE /admin/rules/{ruleID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing business context", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), businessID, chi.URLParam(r, "ruleID")); err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			http.Error(w, "rule not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete rule", "error", err)
		http.Error(w, "failed to delete rule", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "rule deleted",
	})
}

// BulkDeleteRequest is the request body for bulk rule deletion
type BulkDeleteRequest struct {
	RuleIDs []string `json:"rule_ids"`
}

// BulkDelete handles POST /admin/rules/bulk/delete
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing business context", http.StatusBadRequest)
		return
	}

	var req BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.RuleIDs) == 0 {
		http.Error(w, "rule_ids is required", http.StatusBadRequest)
		return
	}

	deleted, err := h.repo.BulkDelete(r.Context(), businessID, req.RuleIDs)
	if err != nil {
		h.logger.Error("failed to bulk delete rules", "error", err)
		http.Error(w, "failed to delete rules", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"deleted_count":   deleted,
		"requested_count": len(req.RuleIDs),
	})
}

// TestMatchRequest is the request body for the dry-run matcher endpoint
type TestMatchRequest struct {
	Message string `json:"message"`
}

// TestMatchResponse reports the dry-run outcome
type TestMatchResponse struct {
	Message string      `json:"message"`
	Result  MatchResult `json:"result"`
}

// TestMatch handles POST /admin/rules/test. It runs the matcher without the
// trigger-count side effect.
func (h *Handler) TestMatch(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing business context", http.StatusBadRequest)
		return
	}

	var req TestMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.matcher.Test(r.Context(), businessID, req.Message)
	if err != nil {
		h.logger.Error("rule test failed", "error", err, "business_id", businessID)
		http.Error(w, "failed to evaluate rules", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, TestMatchResponse{
		Message: req.Message,
		Result:  result,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
