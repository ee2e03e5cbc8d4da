package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/alert"
	"github.com/jparkhurst/crewcall/pkg/db"
)

// Store defines the database operations the scheduler needs
type Store interface {
	GetDueAttempts(ctx context.Context, now time.Time) ([]db.ContactAttempt, error)
}

// Resolver handles an attempt whose response deadline has passed
type Resolver interface {
	HandleDeadlineExpiry(ctx context.Context, attemptID string) error
}

// Scheduler implements durable suspension by polling for contacted attempts
// whose response deadline has passed. The wait survives process restarts
// because the deadline is a persisted row, not an in-memory timer; an early
// reply competes via the same conditional update, so resolving a due attempt
// that was already answered is a no-op.
type Scheduler struct {
	store        Store
	resolver     Resolver
	alerter      alert.Alerter
	logger       *zap.Logger
	pollInterval time.Duration
}

// New creates a scheduler polling at the given interval
func New(store Store, resolver Resolver, alerter alert.Alerter, logger *zap.Logger, pollInterval time.Duration) *Scheduler {
	return &Scheduler{
		store:        store,
		resolver:     resolver,
		alerter:      alerter,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// Run polls until the context is cancelled. Cancellation is the normal way to
// stop the scheduler, so it returns nil rather than the context's error.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started", zap.Duration("poll_interval", s.pollInterval))

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick resolves every due attempt once. A failure on one attempt is captured
// and does not block the others.
func (s *Scheduler) Tick(ctx context.Context) {
	due, err := s.store.GetDueAttempts(ctx, time.Now())
	if err != nil {
		s.logger.Warn("Failed to query due attempts", zap.Error(err))
		s.alerter.Capture(ctx, "due attempt query failed", err)
		return
	}
	if len(due) == 0 {
		return
	}

	s.logger.Info("Resolving due attempts", zap.Int("count", len(due)))

	for _, attempt := range due {
		if err := s.resolver.HandleDeadlineExpiry(ctx, attempt.ID); err != nil {
			s.logger.Warn("Failed to resolve due attempt",
				zap.String("attempt_id", attempt.ID),
				zap.Error(err))
			s.alerter.Capture(ctx, "due attempt resolution failed", err)
		}
	}
}
