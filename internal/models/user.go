package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPoints is the balance granted to a newly created user.
const DefaultPoints = 50

// GenerationCost is the number of points debited per successful generation.
const GenerationCost = 5

// User represents an application user. ProviderID is the subject id issued
// by the external identity provider and is the key the API layer works with;
// Email is a secondary uniqueness key used to re-attach rotated identities.
type User struct {
	ID         uuid.UUID `json:"id"`
	ProviderID string    `json:"provider_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Points     int       `json:"points"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
