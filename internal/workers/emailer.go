// Package workers contains the background consumers for queued jobs.
package workers

import (
	"context"

	"go.uber.org/zap"

	"github.com/sankpost/sankpost-api/internal/queue"
)

// Sender delivers welcome emails.
type Sender interface {
	SendWelcome(ctx context.Context, to, name string) error
}

// Emailer consumes welcome email jobs from the queue and delivers them.
type Emailer struct {
	queue    queue.JobQueue
	sender   Sender
	logger   *zap.Logger
	prefetch int
}

// NewEmailer creates a new email worker
func NewEmailer(q queue.JobQueue, sender Sender, prefetch int, log *zap.Logger) *Emailer {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Emailer{
		queue:    q,
		sender:   sender,
		logger:   log,
		prefetch: prefetch,
	}
}

// Start consumes jobs until the context is cancelled.
func (e *Emailer) Start(ctx context.Context) error {
	messages, errs, err := e.queue.Consume(ctx, e.prefetch)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case consumeErr, ok := <-errs:
			if !ok {
				return nil
			}
			e.logger.Error("queue_consume_error", zap.Error(consumeErr))

		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			e.handle(ctx, msg)
		}
	}
}

func (e *Emailer) handle(ctx context.Context, msg *queue.Message) {
	job := msg.Job

	if job.Type != queue.JobTypeWelcomeEmail {
		e.logger.Warn("unknown_job_type",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
		// Unhandled type goes straight to the DLQ.
		if err := msg.Nack(false); err != nil {
			e.logger.Warn("failed_to_nack_message", zap.Error(err))
		}
		return
	}

	if err := e.sender.SendWelcome(ctx, job.Email, job.Name); err != nil {
		e.logger.Error("failed_to_send_welcome_email",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(err),
		)

		if job.CanRetry() {
			job.IncrementRetry()
			// Re-enqueue a fresh copy so the retry count persists, then
			// drop the original without requeueing it.
			if enqueueErr := e.queue.Enqueue(ctx, job); enqueueErr != nil {
				e.logger.Error("failed_to_requeue_job", zap.Error(enqueueErr))
				if nackErr := msg.Nack(true); nackErr != nil {
					e.logger.Warn("failed_to_nack_message", zap.Error(nackErr))
				}
				return
			}
		}

		if nackErr := msg.Nack(false); nackErr != nil {
			e.logger.Warn("failed_to_nack_message", zap.Error(nackErr))
		}
		return
	}

	e.logger.Info("welcome_email_delivered",
		zap.String("job_id", job.ID.String()),
	)
	if err := msg.Ack(); err != nil {
		e.logger.Warn("failed_to_ack_message", zap.Error(err))
	}
}
