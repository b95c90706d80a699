package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/convodesk/platform/internal/tenancy"
	"github.com/convodesk/platform/pkg/logging"
)

// SignalsProvider supplies conversation-derived signals for a lead. The
// conversation store implements it; scoring must still work when no
// conversation data exists.
type SignalsProvider interface {
	LeadSignals(ctx context.Context, businessID, leadID string) (Signals, error)
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo       Repository
	signals    SignalsProvider
	thresholds Thresholds
	logger     *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, signals SignalsProvider, thresholds Thresholds, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, signals: signals, thresholds: thresholds, logger: logger}
}

// ListLeadsResponse is the paginated list payload
type ListLeadsResponse struct {
	Leads      []*Lead `json:"leads"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}

// List handles GET /admin/leads
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	filter := ListLeadsFilter{
		Status:  r.URL.Query().Get("status"),
		Channel: r.URL.Query().Get("channel"),
		Limit:   limit,
		Offset:  (page - 1) * limit,
	}
	if filter.Status != "" && !ValidStatus(filter.Status) {
		http.Error(w, "invalid status filter", http.StatusBadRequest)
		return
	}

	leads, total, err := h.repo.List(r.Context(), businessID, filter)
	if err != nil {
		h.logger.Error("failed to list leads", "error", err, "business_id", businessID)
		http.Error(w, "failed to list leads", http.StatusInternalServerError)
		return
	}
	if leads == nil {
		leads = []*Lead{}
	}

	totalPages := (total + limit - 1) / limit
	writeJSON(w, http.StatusOK, ListLeadsResponse{
		Leads:      leads,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	})
}

// Create handles POST /admin/leads
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}

	var req CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.BusinessID = businessID

	lead, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create lead", "error", err, "business_id", businessID)
		http.Error(w, "failed to create lead", http.StatusInternalServerError)
		return
	}

	h.logger.Info("lead created", "lead_id", lead.ID, "business_id", businessID, "channel", lead.Channel)
	writeJSON(w, http.StatusCreated, lead)
}

// Get handles GET /admin/leads/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")

	lead, err := h.repo.GetByID(r.Context(), businessID, id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get lead", "error", err, "lead_id", id)
		http.Error(w, "failed to get lead", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Update handles PUT /admin/leads/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")

	var req UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	lead, err := h.repo.Update(r.Context(), businessID, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrLeadNotFound):
			http.Error(w, "lead not found", http.StatusNotFound)
		case isValidationError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("failed to update lead", "error", err, "lead_id", id)
			http.Error(w, "failed to update lead", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// Delete handles DELETE /admin/leads/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(r.Context(), businessID, id); err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete lead", "error", err, "lead_id", id)
		http.Error(w, "failed to delete lead", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "lead deleted",
	})
}

// BulkDeleteRequest is the payload for DELETE /admin/leads/bulk
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDelete handles POST /admin/leads/bulk-delete
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}

	var req BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		http.Error(w, "ids is required", http.StatusBadRequest)
		return
	}

	deleted, err := h.repo.BulkDelete(r.Context(), businessID, req.IDs)
	if err != nil {
		h.logger.Error("failed to bulk delete leads", "error", err, "business_id", businessID)
		http.Error(w, "failed to delete leads", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"deleted_count":   deleted,
		"requested_count": len(req.IDs),
	})
}

// Score handles GET /admin/leads/{id}/score. Scoring is read-only: it never
// mutates the lead, and a failure to load conversation signals degrades to
// zero signals rather than failing the request.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")

	lead, err := h.repo.GetByID(r.Context(), businessID, id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			http.Error(w, "lead not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get lead", "error", err, "lead_id", id)
		http.Error(w, "failed to get lead", http.StatusInternalServerError)
		return
	}

	var signals Signals
	if h.signals != nil {
		signals, err = h.signals.LeadSignals(r.Context(), businessID, id)
		if err != nil {
			h.logger.Warn("failed to load lead signals, scoring without them",
				"error", err, "lead_id", id, "business_id", businessID)
			signals = Signals{}
		}
	}

	result := Score(lead, signals, time.Now().UTC(), h.thresholds)
	writeJSON(w, http.StatusOK, result)
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrMissingBusinessID) ||
		errors.Is(err, ErrMissingChannel) ||
		errors.Is(err, ErrMissingContact) ||
		errors.Is(err, ErrInvalidStatus)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
