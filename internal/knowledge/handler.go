package knowledge

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/convodesk/platform/internal/tenancy"
	"github.com/convodesk/platform/pkg/logging"
)

// Handler handles HTTP requests for knowledge entries
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new knowledge handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /admin/knowledge
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}

	entries, err := h.repo.List(r.Context(), businessID)
	if err != nil {
		h.logger.Error("failed to list knowledge entries", "error", err, "business_id", businessID)
		http.Error(w, "failed to list entries", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// Create handles POST /admin/knowledge
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}

	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.BusinessID = businessID

	entry, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrMissingTitle) || errors.Is(err, ErrMissingContent) || errors.Is(err, ErrMissingBusinessID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to create knowledge entry", "error", err, "business_id", businessID)
		http.Error(w, "failed to create entry", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Get handles GET /admin/knowledge/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}

	entry, err := h.repo.GetByID(r.Context(), businessID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get knowledge entry", "error", err)
		http.Error(w, "failed to get entry", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Update handles PUT /admin/knowledge/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}

	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.repo.Update(r.Context(), businessID, chi.URLParam(r, "id"), &req)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to update knowledge entry", "error", err)
		http.Error(w, "failed to update entry", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Delete handles DELETE /admin/knowledge/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), businessID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete knowledge entry", "error", err)
		http.Error(w, "failed to delete entry", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "entry deleted",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
