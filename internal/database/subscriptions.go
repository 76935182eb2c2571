package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sankpost/sankpost-api/internal/models"
)

// SubscriptionRepository handles subscription database operations
type SubscriptionRepository struct {
	db *DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = "id, user_id, stripe_subscription_id, plan, status, current_period_start, current_period_end, created_at, updated_at"

func scanSubscription(row *sql.Row) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.StripeSubscriptionID,
		&sub.Plan,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Upsert creates or updates the subscription row keyed by the billing
// provider's subscription id. The owning user is resolved from the external
// identity provider id.
func (r *SubscriptionRepository) Upsert(ctx context.Context, providerID, stripeSubscriptionID, plan, status string, periodStart, periodEnd time.Time) (*models.Subscription, error) {
	query := `
		INSERT INTO subscriptions
			(id, user_id, stripe_subscription_id, plan, status, current_period_start, current_period_end, created_at, updated_at)
		VALUES
			($1, (SELECT id FROM users WHERE provider_id = $2), $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (stripe_subscription_id) DO UPDATE
		SET plan = EXCLUDED.plan,
		    status = EXCLUDED.status,
		    current_period_start = EXCLUDED.current_period_start,
		    current_period_end = EXCLUDED.current_period_end,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + subscriptionColumns

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query,
		uuid.New(),
		providerID,
		stripeSubscriptionID,
		plan,
		status,
		periodStart,
		periodEnd,
		time.Now(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	return sub, nil
}

// GetByStripeID retrieves a subscription by the billing provider's id
func (r *SubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_subscription_id = $1`

	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, stripeSubscriptionID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subscription not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}
