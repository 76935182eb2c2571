// Package ledger tracks per-user point balances. Reads and idempotent
// upserts are best-effort: storage failures are logged and coalesced to
// sentinel values (0, nil) so a transient database error never breaks the
// user-facing flow. Debits are the exception; they gate paid usage and
// report their errors.
package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sankpost/sankpost-api/internal/database"
	"github.com/sankpost/sankpost-api/internal/models"
)

// UserStore is the storage surface the ledger needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, providerID, email, name string) (*models.User, error)
	AttachProviderID(ctx context.Context, email, providerID, name string) (*models.User, error)
	GetPoints(ctx context.Context, providerID string) (int, error)
	AdjustPoints(ctx context.Context, providerID string, delta int) (*models.User, error)
	DebitPoints(ctx context.Context, providerID string, cost int) (*models.User, error)
}

// Notifier delivers fire-and-forget user notifications.
type Notifier interface {
	NotifyWelcome(ctx context.Context, email, name string)
}

// ErrInsufficientPoints is returned by Debit when the balance cannot cover
// the cost.
var ErrInsufficientPoints = database.ErrInsufficientPoints

// Service is the points ledger.
type Service struct {
	users    UserStore
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates a new ledger service. notifier may be nil when welcome
// notifications are disabled.
func NewService(users UserStore, notifier Notifier, log *zap.Logger) *Service {
	return &Service{users: users, notifier: notifier, logger: log}
}

// GetPoints returns the current balance for the user identified by the
// external identity id. Unknown users and storage failures both read as 0;
// no row is created.
func (s *Service) GetPoints(ctx context.Context, providerID string) int {
	points, err := s.users.GetPoints(ctx, providerID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("failed_to_get_points",
				zap.String("provider_id", providerID),
				zap.Error(err),
			)
		}
		return 0
	}
	return points
}

// EnsureUser is the idempotent merge-or-create upsert. Lookup order: by
// identity id, then by email, then insert. The two keys are checked as an
// explicit two-step lookup so exactly one branch executes.
func (s *Service) EnsureUser(ctx context.Context, providerID, email, name string) *models.User {
	// (a) Known identity id: refresh profile and return.
	if _, err := s.users.GetByProviderID(ctx, providerID); err == nil {
		user, err := s.users.UpdateProfile(ctx, providerID, email, name)
		if err != nil {
			s.logger.Error("failed_to_update_user", zap.String("provider_id", providerID), zap.Error(err))
			return nil
		}
		return user
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("failed_to_look_up_user", zap.String("provider_id", providerID), zap.Error(err))
		return nil
	}

	// (b) Known email under a rotated identity: re-attach rather than
	// fragmenting the account.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		user, err := s.users.AttachProviderID(ctx, email, providerID, name)
		if err != nil {
			s.logger.Error("failed_to_attach_provider_id", zap.String("provider_id", providerID), zap.Error(err))
			return nil
		}
		s.welcome(ctx, email, name)
		return user
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("failed_to_look_up_user_by_email", zap.Error(err))
		return nil
	}

	// (c) First sight: create with the default balance.
	user := &models.User{
		ID:         uuid.New(),
		ProviderID: providerID,
		Email:      email,
		Name:       name,
		Points:     models.DefaultPoints,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("failed_to_create_user", zap.String("provider_id", providerID), zap.Error(err))
		return nil
	}
	s.welcome(ctx, email, name)
	return user
}

// AdjustPoints applies an unconditional atomic balance adjustment. Returns
// nil when the user does not exist or storage fails (logged, not thrown).
func (s *Service) AdjustPoints(ctx context.Context, providerID string, delta int) *models.User {
	user, err := s.users.AdjustPoints(ctx, providerID, delta)
	if err != nil {
		s.logger.Error("failed_to_adjust_points",
			zap.String("provider_id", providerID),
			zap.Int("delta", delta),
			zap.Error(err),
		)
		return nil
	}
	return user
}

// Debit decrements the balance by cost only when the balance covers it.
// Check and decrement are a single storage round-trip, so two concurrent
// generations cannot both debit past zero.
func (s *Service) Debit(ctx context.Context, providerID string, cost int) (*models.User, error) {
	user, err := s.users.DebitPoints(ctx, providerID, cost)
	if err != nil {
		if !errors.Is(err, ErrInsufficientPoints) {
			s.logger.Error("failed_to_debit_points",
				zap.String("provider_id", providerID),
				zap.Int("cost", cost),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) welcome(ctx context.Context, email, name string) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyWelcome(ctx, email, name)
}
