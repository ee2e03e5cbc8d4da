package outreach

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/db"
)

// AdvanceQueue starts a contact attempt for the next untried candidate in
// priority order. An exhausted queue is a terminal, observable condition (the
// position remains understaffed), not an error.
func (s *Service) AdvanceQueue(ctx context.Context, positionID string) error {
	s.logger.Debug("Advancing candidate queue", zap.String("position_id", positionID))

	position, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		return fmt.Errorf("failed to load position: %w", err)
	}

	// A closed position is advisory for in-flight attempts but blocks new ones
	if position.HiringStatus != db.HiringOpen {
		s.logger.Info("Position not open, skipping queue advance",
			zap.String("position_id", positionID),
			zap.String("hiring_status", string(position.HiringStatus)))
		return nil
	}

	confirmed, err := s.store.CountAttemptsByStatus(ctx, positionID, db.AttemptConfirmed)
	if err != nil {
		return fmt.Errorf("failed to count confirmed attempts: %w", err)
	}
	if confirmed >= position.RequiredQuantity {
		s.logger.Info("Position quantity already satisfied, no attempt needed",
			zap.String("position_id", positionID),
			zap.Int("confirmed", confirmed),
			zap.Int("required", position.RequiredQuantity))
		return nil
	}

	// At most one active attempt per position at a time
	active, err := s.store.HasActiveAttempt(ctx, positionID)
	if err != nil {
		return fmt.Errorf("failed to check active attempts: %w", err)
	}
	if active {
		s.logger.Debug("Active attempt in flight, skipping queue advance",
			zap.String("position_id", positionID))
		return nil
	}

	candidates, err := s.store.GetCandidatesByPosition(ctx, positionID)
	if err != nil {
		return fmt.Errorf("failed to load candidates: %w", err)
	}

	attempts, err := s.store.GetAttemptsByPosition(ctx, positionID)
	if err != nil {
		return fmt.Errorf("failed to load attempts: %w", err)
	}

	tried := make(map[string]bool)
	for _, a := range attempts {
		tried[a.CandidateID] = true
	}

	next := nextUntriedCandidate(candidates, tried)
	if next == nil {
		s.logger.Info("Candidate queue exhausted, position remains understaffed",
			zap.String("position_id", positionID),
			zap.Int("candidates", len(candidates)),
			zap.Int("confirmed", confirmed))
		return nil
	}

	s.logger.Info("Next candidate selected",
		zap.String("position_id", positionID),
		zap.String("candidate_id", next.ID),
		zap.Int("priority", next.Priority))

	deadline := time.Now().Add(s.cfg.ResponseWindow)
	if _, err := s.StartAttempt(ctx, positionID, next.ID, deadline); err != nil {
		return fmt.Errorf("failed to start attempt for candidate %s: %w", next.ID, err)
	}

	return nil
}

// nextUntriedCandidate returns the lowest-priority candidate with no prior
// attempt. Candidates are already ordered by ascending priority.
func nextUntriedCandidate(candidates []db.Candidate, tried map[string]bool) *db.Candidate {
	for i := range candidates {
		if !tried[candidates[i].ID] {
			return &candidates[i]
		}
	}
	return nil
}
