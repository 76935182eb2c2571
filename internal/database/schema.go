package database

import (
	"context"
	"fmt"
)

// schema holds the bootstrap DDL. Statements are idempotent so startup can
// apply them unconditionally.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		provider_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL DEFAULT 50,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		stripe_subscription_id TEXT NOT NULL UNIQUE,
		plan TEXT NOT NULL,
		status TEXT NOT NULL,
		current_period_start TIMESTAMPTZ NOT NULL,
		current_period_end TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS generated_content (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		prompt TEXT NOT NULL,
		content TEXT NOT NULL,
		content_type TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generated_content_user_created
		ON generated_content (user_id, created_at DESC)`,
}

// EnsureSchema applies the bootstrap DDL.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
