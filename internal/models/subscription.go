package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription mirrors a billing-provider subscription. Rows are keyed by
// the provider's subscription id and upserted from webhook events.
type Subscription struct {
	ID                   uuid.UUID `json:"id"`
	UserID               uuid.UUID `json:"user_id"`
	StripeSubscriptionID string    `json:"stripe_subscription_id"`
	Plan                 string    `json:"plan"`
	Status               string    `json:"status"`
	CurrentPeriodStart   time.Time `json:"current_period_start"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
