package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sankpost/sankpost-api/internal/database"
	"github.com/sankpost/sankpost-api/internal/services/billing"
)

// WebhookHandler persists subscription lifecycle events posted by Stripe
type WebhookHandler struct {
	subscriptions *database.SubscriptionRepository
	logger        *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(subscriptions *database.SubscriptionRepository, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{subscriptions: subscriptions, logger: log}
}

// RegisterRoutes registers webhook routes on the given router
func (h *WebhookHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/billing/webhook", h.Handle).Methods("POST")
}

// Handle maps a billing event onto the subscription upsert. Event types this
// system does not track are acknowledged without action so the provider
// stops redelivering them.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var event billing.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	update, err := billing.ParseSubscriptionUpdate(&event)
	if err != nil {
		h.logger.Warn("malformed_billing_event",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		respondError(w, http.StatusBadRequest, "Malformed event")
		return
	}
	if update == nil {
		respondJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	if update.UserID == "" {
		// Nothing to attach the subscription to. Acknowledge so the event
		// is not redelivered forever.
		h.logger.Warn("billing_event_missing_user",
			zap.String("event_id", event.ID),
			zap.String("subscription_id", update.SubscriptionID),
		)
		respondJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	_, err = h.subscriptions.Upsert(
		r.Context(),
		update.UserID,
		update.SubscriptionID,
		update.Plan,
		update.Status,
		update.CurrentPeriodStart,
		update.CurrentPeriodEnd,
	)
	if err != nil {
		h.logger.Error("failed_to_persist_subscription",
			zap.String("event_id", event.ID),
			zap.String("subscription_id", update.SubscriptionID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "Failed to persist subscription")
		return
	}

	h.logger.Info("subscription_updated",
		zap.String("event_type", event.Type),
		zap.String("subscription_id", update.SubscriptionID),
		zap.String("status", update.Status),
	)
	respondJSON(w, http.StatusOK, map[string]any{"received": true})
}
