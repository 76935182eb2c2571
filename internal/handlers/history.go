package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sankpost/sankpost-api/internal/models"
	"github.com/sankpost/sankpost-api/internal/request"
	"github.com/sankpost/sankpost-api/internal/services/history"
)

// HistoryHandler serves generation history
type HistoryHandler struct {
	history *history.Service
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(historySvc *history.Service) *HistoryHandler {
	return &HistoryHandler{history: historySvc}
}

// RegisterRoutes registers history routes on the given router
func (h *HistoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/history", h.List).Methods("GET")
}

// HistoryRecord is one history entry on the wire. Items carries the parsed
// multi-item view for short-post records.
type HistoryRecord struct {
	ID          uuid.UUID          `json:"id"`
	Prompt      string             `json:"prompt"`
	Content     string             `json:"content"`
	ContentType models.ContentType `json:"contentType"`
	Items       []string           `json:"items,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// List returns the authenticated user's history, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	records := h.history.List(r.Context(), user.ProviderID, limit)

	out := make([]HistoryRecord, 0, len(records))
	for _, rec := range records {
		entry := HistoryRecord{
			ID:          rec.ID,
			Prompt:      rec.Prompt,
			Content:     rec.Content,
			ContentType: rec.ContentType,
			CreatedAt:   rec.CreatedAt,
		}
		if rec.ContentType == models.ContentTypeShortPost {
			entry.Items = models.ParseItems(rec.Content)
		}
		out = append(out, entry)
	}

	respondJSON(w, http.StatusOK, map[string]any{"history": out})
}
