package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sankpost/sankpost-api/internal/models"
)

// ContentRepository handles generated content database operations
type ContentRepository struct {
	db *DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Append inserts one immutable history record. The owning user is resolved
// from the provider id by a sub-query rather than a pre-fetched numeric id,
// so the insert fails atomically if the user does not exist.
func (r *ContentRepository) Append(ctx context.Context, providerID, content, prompt string, contentType models.ContentType) (*models.GeneratedContent, error) {
	query := `
		INSERT INTO generated_content (id, user_id, prompt, content, content_type, created_at)
		VALUES ($1, (SELECT id FROM users WHERE provider_id = $2), $3, $4, $5, $6)
		RETURNING id, user_id, prompt, content, content_type, created_at
	`

	record := &models.GeneratedContent{}
	err := r.db.QueryRowContext(ctx, query,
		uuid.New(),
		providerID,
		prompt,
		content,
		contentType,
		time.Now(),
	).Scan(
		&record.ID,
		&record.UserID,
		&record.Prompt,
		&record.Content,
		&record.ContentType,
		&record.CreatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to save generated content: %w", err)
	}

	return record, nil
}

// ListRecent returns up to limit records for the user, newest first.
func (r *ContentRepository) ListRecent(ctx context.Context, providerID string, limit int) ([]*models.GeneratedContent, error) {
	query := `
		SELECT id, user_id, prompt, content, content_type, created_at
		FROM generated_content
		WHERE user_id = (SELECT id FROM users WHERE provider_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, providerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query content history: %w", err)
	}
	defer rows.Close()

	var records []*models.GeneratedContent
	for rows.Next() {
		record := &models.GeneratedContent{}
		err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.Prompt,
			&record.Content,
			&record.ContentType,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate content history: %w", err)
	}

	return records, nil
}
