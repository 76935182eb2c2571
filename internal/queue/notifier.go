package queue

import (
	"context"

	"go.uber.org/zap"
)

// WelcomeNotifier enqueues welcome email jobs. Delivery is fire-and-forget:
// enqueue failures are logged, never surfaced to the signup path.
type WelcomeNotifier struct {
	queue  JobQueue
	logger *zap.Logger
}

// NewWelcomeNotifier creates a new welcome notifier
func NewWelcomeNotifier(q JobQueue, log *zap.Logger) *WelcomeNotifier {
	return &WelcomeNotifier{queue: q, logger: log}
}

// NotifyWelcome enqueues one welcome email job.
func (n *WelcomeNotifier) NotifyWelcome(ctx context.Context, email, name string) {
	job := NewWelcomeEmailJob(email, name)
	if err := n.queue.Enqueue(ctx, job); err != nil {
		n.logger.Error("failed_to_enqueue_welcome_email",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return
	}
	n.logger.Info("enqueued_welcome_email",
		zap.String("job_id", job.ID.String()),
	)
}
