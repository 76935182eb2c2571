package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeWelcomeEmail delivers the onboarding email to a new user
	JobTypeWelcomeEmail JobType = "welcome_email"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID `json:"id"`
	Type       JobType   `json:"type"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	RetryCount int       `json:"retry_count"`
	MaxRetries int       `json:"max_retries"`
}

// NewWelcomeEmailJob creates a welcome email job
func NewWelcomeEmailJob(email, name string) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeWelcomeEmail,
		Email:      email,
		Name:       name,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
