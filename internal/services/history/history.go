// Package history persists generation records. Like the ledger, it applies
// the best-effort policy at this boundary: storage errors are logged and
// coalesced to nil/empty sentinels.
package history

import (
	"context"

	"go.uber.org/zap"

	"github.com/sankpost/sankpost-api/internal/models"
)

// DefaultLimit bounds history queries when the caller does not say otherwise.
const DefaultLimit = 10

// MaxLimit caps history queries.
const MaxLimit = 50

// ContentStore is the storage surface the history service needs.
type ContentStore interface {
	Append(ctx context.Context, providerID, content, prompt string, contentType models.ContentType) (*models.GeneratedContent, error)
	ListRecent(ctx context.Context, providerID string, limit int) ([]*models.GeneratedContent, error)
}

// Service is the content history store.
type Service struct {
	store  ContentStore
	logger *zap.Logger
}

// NewService creates a new history service
func NewService(store ContentStore, log *zap.Logger) *Service {
	return &Service{store: store, logger: log}
}

// Append records one immutable generation. Returns nil on storage failure
// (logged); callers treat nil as "not recorded".
func (s *Service) Append(ctx context.Context, providerID, content, prompt string, contentType models.ContentType) *models.GeneratedContent {
	record, err := s.store.Append(ctx, providerID, content, prompt, contentType)
	if err != nil {
		s.logger.Error("failed_to_save_generated_content",
			zap.String("provider_id", providerID),
			zap.String("content_type", string(contentType)),
			zap.Error(err),
		)
		return nil
	}
	return record
}

// List returns up to limit records, newest first. Zero or negative limits
// read as DefaultLimit; limits above MaxLimit are clamped. Failures and
// empty histories both read as an empty slice.
func (s *Service) List(ctx context.Context, providerID string, limit int) []*models.GeneratedContent {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	records, err := s.store.ListRecent(ctx, providerID, limit)
	if err != nil {
		s.logger.Error("failed_to_fetch_content_history",
			zap.String("provider_id", providerID),
			zap.Error(err),
		)
		return []*models.GeneratedContent{}
	}
	if records == nil {
		return []*models.GeneratedContent{}
	}
	return records
}
