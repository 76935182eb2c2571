package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sankpost/sankpost-api/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, provider_id, email, name, points, created_at, updated_at"

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.ProviderID,
		&user.Email,
		&user.Name,
		&user.Points,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create creates a new user with the default point balance
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, provider_id, email, name, points, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	if user.Points == 0 {
		user.Points = models.DefaultPoints
	}

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.ProviderID,
		user.Email,
		user.Name,
		user.Points,
		now,
		now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByProviderID retrieves a user by external identity provider id
func (r *UserRepository) GetByProviderID(ctx context.Context, providerID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider_id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, providerID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by provider ID: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// UpdateProfile updates name and email for the row matching the provider id
func (r *UserRepository) UpdateProfile(ctx context.Context, providerID, email, name string) (*models.User, error) {
	query := `
		UPDATE users
		SET email = $2, name = $3, updated_at = $4
		WHERE provider_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, providerID, email, name, time.Now()))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// AttachProviderID attaches a new identity provider id to the row matching
// the email. Used when an identity rotates but the email is already known,
// so the user keeps their history and points.
func (r *UserRepository) AttachProviderID(ctx context.Context, email, providerID, name string) (*models.User, error) {
	query := `
		UPDATE users
		SET provider_id = $2, name = $3, updated_at = $4
		WHERE email = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email, providerID, name, time.Now()))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to attach provider ID: %w", err)
	}

	return user, nil
}

// GetPoints returns the point balance for the user matching the provider id
func (r *UserRepository) GetPoints(ctx context.Context, providerID string) (int, error) {
	query := `SELECT points FROM users WHERE provider_id = $1`

	var points int
	err := r.db.QueryRowContext(ctx, query, providerID).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get points: %w", err)
	}

	return points, nil
}

// AdjustPoints applies points = points + delta as a single atomic update.
// Delta may be negative. The arithmetic happens at the storage layer so
// concurrent adjustments for the same user never lose updates.
func (r *UserRepository) AdjustPoints(ctx context.Context, providerID string, delta int) (*models.User, error) {
	query := `
		UPDATE users
		SET points = points + $2, updated_at = $3
		WHERE provider_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, providerID, delta, time.Now()))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust points: %w", err)
	}

	return user, nil
}

// ErrInsufficientPoints is returned by DebitPoints when the balance cannot
// cover the debit.
var ErrInsufficientPoints = fmt.Errorf("insufficient points")

// DebitPoints decrements the balance by cost only if the balance covers it.
// Check and decrement happen in one storage round-trip, so two concurrent
// debits for the same user cannot both succeed past the balance.
func (r *UserRepository) DebitPoints(ctx context.Context, providerID string, cost int) (*models.User, error) {
	query := `
		UPDATE users
		SET points = points - $2, updated_at = $3
		WHERE provider_id = $1 AND points >= $2
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, providerID, cost, time.Now()))
	if err == sql.ErrNoRows {
		return nil, ErrInsufficientPoints
	}
	if err != nil {
		return nil, fmt.Errorf("failed to debit points: %w", err)
	}

	return user, nil
}
