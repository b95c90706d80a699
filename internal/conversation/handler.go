package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/convodesk/platform/internal/tenancy"
	"github.com/convodesk/platform/pkg/logging"
)

// Handler exposes the message pipeline over HTTP
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a conversation handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Inbound handles POST /messages/inbound
func (h *Handler) Inbound(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}

	var inbound InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&inbound); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.ProcessInbound(r.Context(), businessID, inbound)
	if err != nil {
		if errors.Is(err, ErrMissingChannel) || errors.Is(err, ErrMissingContact) || errors.Is(err, ErrEmptyMessage) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("inbound processing failed", "error", err, "business_id", businessID)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

// TranscriptResponse wraps a contact transcript
type TranscriptResponse struct {
	Messages []*Message `json:"messages"`
	Count    int        `json:"count"`
}

// Transcript handles GET /conversations/{contactID}
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, "business context required", http.StatusBadRequest)
		return
	}

	contactID := chi.URLParam(r, "contactID")
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		http.Error(w, "channel query parameter is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.service.Transcript(r.Context(), businessID, channel, contactID, limit)
	if err != nil {
		h.logger.Error("failed to load transcript", "error", err, "business_id", businessID)
		http.Error(w, "failed to load transcript", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []*Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(TranscriptResponse{Messages: messages, Count: len(messages)})
}
