package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sankpost/sankpost-api/internal/request"
	"github.com/sankpost/sankpost-api/internal/services/ledger"
)

// PointsHandler serves point balances
type PointsHandler struct {
	ledger *ledger.Service
}

// NewPointsHandler creates a new points handler
func NewPointsHandler(ledgerSvc *ledger.Service) *PointsHandler {
	return &PointsHandler{ledger: ledgerSvc}
}

// RegisterRoutes registers points routes on the given router
func (h *PointsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/points", h.GetPoints).Methods("GET")
}

// GetPoints returns the authenticated user's balance. Unknown users read as 0.
func (h *PointsHandler) GetPoints(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	points := h.ledger.GetPoints(r.Context(), user.ProviderID)
	respondJSON(w, http.StatusOK, map[string]any{"points": points})
}
