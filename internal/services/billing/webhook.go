package billing

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the envelope Stripe posts to the webhook endpoint.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// SubscriptionUpdate is the normalized payload the persistence layer needs
// from a subscription lifecycle event.
type SubscriptionUpdate struct {
	UserID             string
	SubscriptionID     string
	Plan               string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

type subscriptionObject struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Metadata           struct {
		UserID string `json:"user_id"`
	} `json:"metadata"`
	Items struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type checkoutSessionObject struct {
	ID                string `json:"id"`
	ClientReferenceID string `json:"client_reference_id"`
	Subscription      string `json:"subscription"`
	Status            string `json:"status"`
}

// ParseSubscriptionUpdate maps a webhook event onto a SubscriptionUpdate.
// Returns (nil, nil) for event types this system does not track.
func ParseSubscriptionUpdate(event *Event) (*SubscriptionUpdate, error) {
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub subscriptionObject
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription event: %w", err)
		}
		if sub.ID == "" {
			return nil, fmt.Errorf("subscription event missing id")
		}
		update := &SubscriptionUpdate{
			UserID:             sub.Metadata.UserID,
			SubscriptionID:     sub.ID,
			Status:             sub.Status,
			CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0).UTC(),
			CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
		}
		if len(sub.Items.Data) > 0 {
			update.Plan = sub.Items.Data[0].Price.ID
		}
		return update, nil

	case "checkout.session.completed":
		var session checkoutSessionObject
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session event: %w", err)
		}
		if session.Subscription == "" {
			return nil, nil
		}
		return &SubscriptionUpdate{
			UserID:         session.ClientReferenceID,
			SubscriptionID: session.Subscription,
			Status:         "active",
		}, nil
	}

	return nil, nil
}
