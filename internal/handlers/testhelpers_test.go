package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sankpost/sankpost-api/internal/database"
	"github.com/sankpost/sankpost-api/internal/models"
	"github.com/sankpost/sankpost-api/internal/request"
)

// stubUserStore backs the ledger service in handler tests.
type stubUserStore struct {
	points    map[string]int
	debitErr  error
	debits    int
	adjustErr error
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{points: make(map[string]int)}
}

func (s *stubUserStore) user(providerID string) *models.User {
	return &models.User{
		ID:         uuid.New(),
		ProviderID: providerID,
		Email:      providerID + "@example.com",
		Points:     s.points[providerID],
	}
}

func (s *stubUserStore) Create(ctx context.Context, user *models.User) error {
	s.points[user.ProviderID] = user.Points
	return nil
}

func (s *stubUserStore) GetByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	if _, ok := s.points[providerID]; !ok {
		return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	return s.user(providerID), nil
}

func (s *stubUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (s *stubUserStore) UpdateProfile(ctx context.Context, providerID, email, name string) (*models.User, error) {
	return s.user(providerID), nil
}

func (s *stubUserStore) AttachProviderID(ctx context.Context, email, providerID, name string) (*models.User, error) {
	return s.user(providerID), nil
}

func (s *stubUserStore) GetPoints(ctx context.Context, providerID string) (int, error) {
	p, ok := s.points[providerID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return p, nil
}

func (s *stubUserStore) AdjustPoints(ctx context.Context, providerID string, delta int) (*models.User, error) {
	if s.adjustErr != nil {
		return nil, s.adjustErr
	}
	s.points[providerID] += delta
	return s.user(providerID), nil
}

func (s *stubUserStore) DebitPoints(ctx context.Context, providerID string, cost int) (*models.User, error) {
	s.debits++
	if s.debitErr != nil {
		return nil, s.debitErr
	}
	if s.points[providerID] < cost {
		return nil, database.ErrInsufficientPoints
	}
	s.points[providerID] -= cost
	return s.user(providerID), nil
}

// stubContentStore backs the history service in handler tests.
type stubContentStore struct {
	records   []*models.GeneratedContent
	appendErr error
}

func (s *stubContentStore) Append(ctx context.Context, providerID, content, prompt string, contentType models.ContentType) (*models.GeneratedContent, error) {
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	rec := &models.GeneratedContent{
		ID:          uuid.New(),
		Prompt:      prompt,
		Content:     content,
		ContentType: contentType,
		CreatedAt:   time.Now(),
	}
	s.records = append([]*models.GeneratedContent{rec}, s.records...)
	return rec, nil
}

func (s *stubContentStore) ListRecent(ctx context.Context, providerID string, limit int) ([]*models.GeneratedContent, error) {
	if limit > len(s.records) {
		limit = len(s.records)
	}
	return s.records[:limit], nil
}

// withUser attaches an authenticated user to the request context.
func withUser(r *http.Request, providerID string) *http.Request {
	u := &models.User{ID: uuid.New(), ProviderID: providerID, Email: providerID + "@example.com"}
	return r.WithContext(request.WithUser(r.Context(), u))
}
