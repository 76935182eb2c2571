package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sankpost/sankpost-api/internal/services/billing"
)

// CheckoutHandler initiates Stripe hosted checkout sessions
type CheckoutHandler struct {
	stripe  *billing.Client
	baseURL string
	logger  *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler. baseURL is the public
// URL the redirect targets are built from.
func NewCheckoutHandler(stripe *billing.Client, baseURL string, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{stripe: stripe, baseURL: baseURL, logger: log}
}

// RegisterRoutes registers checkout routes on the given router
func (h *CheckoutHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/checkout/session", h.CreateSession).Methods("POST")
}

// CreateSessionRequest represents a checkout session request
type CreateSessionRequest struct {
	PriceID string `json:"priceId"`
	UserID  string `json:"userId"`
}

// CreateSession handles POST /checkout/session
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if !h.stripe.Configured() {
		respondError(w, http.StatusInternalServerError, "Stripe is not configured (missing STRIPE_SECRET_KEY)")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PriceID == "" || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "Missing priceId or userId")
		return
	}

	if h.baseURL == "" {
		// Relative redirect URLs are rejected by some payment flows but the
		// session itself still gets created.
		h.logger.Warn("base_url_not_configured")
	}

	session, err := h.stripe.CreateCheckoutSession(
		r.Context(),
		req.PriceID,
		req.UserID,
		billing.SuccessURL(h.baseURL),
		billing.CancelURL(h.baseURL),
	)
	if err != nil {
		h.logger.Error("failed_to_create_checkout_session",
			zap.String("price_id", req.PriceID),
			zap.Error(err),
		)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Error creating checkout session",
			"details": err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"sessionId": session.ID})
}
