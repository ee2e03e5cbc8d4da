package outreach

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/core/delivery"
	"github.com/jparkhurst/crewcall/pkg/db"
)

// StartAttempt creates a contact attempt for a candidate and sends the
// outreach message. The send is deliberately at-most-once: on failure the
// attempt stays pending and is not retried here, so a real person never
// receives a duplicate message. Any re-send must be a new explicit call.
func (s *Service) StartAttempt(ctx context.Context, positionID, candidateID string, deadline time.Time) (*db.ContactAttempt, error) {
	if err := s.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("Starting contact attempt",
		zap.String("position_id", positionID),
		zap.String("candidate_id", candidateID),
		zap.Time("deadline", deadline))

	position, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load position: %w", err)
	}

	candidate, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}

	attempt := &db.ContactAttempt{
		ID:               uuid.New().String(),
		PositionID:       positionID,
		CandidateID:      candidateID,
		Status:           db.AttemptPending,
		ResponseDeadline: deadline,
	}
	if err := s.store.CreateContactAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create contact attempt: %w", err)
	}

	s.logger.Debug("Contact attempt created", zap.String("attempt_id", attempt.ID))

	body := outreachBody(candidate.Name, position.Title, deadline)
	summary, err := s.pipeline.Run(ctx, []delivery.Notification{{
		SMS: &delivery.SMSPayload{
			To:                   candidate.Phone,
			From:                 s.cfg.FromNumber,
			Body:                 body,
			StatusCallbackURL:    s.cfg.StatusCallbackURL,
			AttachOnFirstContact: true,
			OneTimeMediaURL:      s.cfg.ContactCardURL,
		},
		Record: delivery.RecordMeta{
			Type:      db.RecordOutreachSent,
			MemberID:  candidate.MemberID,
			CompanyID: s.cfg.CompanyID,
		},
	}})
	if err != nil {
		return attempt, fmt.Errorf("failed to run outreach send: %w", err)
	}
	if summary.Failed() > 0 {
		// Attempt stays pending; the failure was already captured by the
		// pipeline. The position remains observable as unstaffed.
		s.logger.Warn("Outreach send failed, attempt remains pending",
			zap.String("attempt_id", attempt.ID),
			zap.String("candidate_id", candidateID))
		return attempt, fmt.Errorf("outreach send to %s failed: %w", candidate.Phone, summary.Failures[0].Err)
	}

	won, err := s.store.TransitionAttempt(ctx, attempt.ID, db.AttemptPending, db.AttemptContacted)
	if err != nil {
		return attempt, fmt.Errorf("failed to mark attempt contacted: %w", err)
	}
	if !won {
		return attempt, fmt.Errorf("attempt %s was no longer pending", attempt.ID)
	}
	attempt.Status = db.AttemptContacted

	msg := &db.OutboundMessage{
		ID:         uuid.New().String(),
		AttemptID:  attempt.ID,
		Channel:    db.ChannelSMS,
		ProviderID: summary.Sent[0].ProviderID,
		Recipient:  candidate.Phone,
		Body:       body,
	}
	if err := s.store.InsertOutboundMessage(ctx, msg); err != nil {
		return attempt, fmt.Errorf("failed to record outbound message: %w", err)
	}

	s.logger.Info("Contact attempt sent, awaiting reply",
		zap.String("attempt_id", attempt.ID),
		zap.Time("deadline", deadline))

	return attempt, nil
}

// HandleDeadlineExpiry resolves an attempt whose response deadline has passed.
// The transition is conditional: if a reply already resolved the attempt, the
// expiry is a no-op and the queue advancer is not invoked.
func (s *Service) HandleDeadlineExpiry(ctx context.Context, attemptID string) error {
	attempt, err := s.store.GetContactAttempt(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("failed to load attempt: %w", err)
	}

	won, err := s.store.TransitionAttempt(ctx, attemptID, db.AttemptContacted, db.AttemptNoResponse)
	if err != nil {
		return fmt.Errorf("failed to transition attempt: %w", err)
	}
	if !won {
		s.logger.Debug("Deadline fired on already-resolved attempt",
			zap.String("attempt_id", attemptID))
		return nil
	}

	s.logger.Info("Attempt expired with no response",
		zap.String("attempt_id", attemptID),
		zap.String("position_id", attempt.PositionID))

	return s.AdvanceQueue(ctx, attempt.PositionID)
}

// HandleReply classifies an inbound message and resolves the owning attempt.
// Unknown replies are logged but cause no transition. Replies to stale or
// expired attempts are ignored via the contacted-only guard.
func (s *Service) HandleReply(ctx context.Context, from, body string) error {
	reply := Classify(body)
	s.logger.Info("Inbound reply received",
		zap.String("from", from),
		zap.String("classification", reply.String()))

	if reply == ReplyUnknown {
		rec := &db.NotificationRecord{
			ID:        uuid.New().String(),
			Type:      db.RecordUnknownReply,
			Recipient: from,
			CompanyID: s.cfg.CompanyID,
			Body:      body,
		}
		if err := s.store.InsertNotificationRecord(ctx, rec); err != nil {
			return fmt.Errorf("failed to log unknown reply: %w", err)
		}
		return nil
	}

	msg, err := s.store.GetLatestOutboundMessage(ctx, from)
	if err != nil {
		s.logger.Warn("Reply from address with no outbound message",
			zap.String("from", from))
		return fmt.Errorf("failed to correlate reply: %w", err)
	}

	attempt, err := s.store.GetContactAttempt(ctx, msg.AttemptID)
	if err != nil {
		return fmt.Errorf("failed to load attempt for reply: %w", err)
	}

	if attempt.Status != db.AttemptContacted {
		s.logger.Info("Ignoring reply to resolved attempt",
			zap.String("attempt_id", attempt.ID),
			zap.String("status", string(attempt.Status)))
		return nil
	}

	if reply == ReplyPositive {
		return s.resolveConfirmed(ctx, attempt, from)
	}
	return s.resolveDeclined(ctx, attempt, from)
}

// resolveConfirmed transitions the attempt to confirmed, acknowledges the
// candidate, and completes the position once its quantity is met
func (s *Service) resolveConfirmed(ctx context.Context, attempt *db.ContactAttempt, from string) error {
	won, err := s.store.TransitionAttempt(ctx, attempt.ID, db.AttemptContacted, db.AttemptConfirmed)
	if err != nil {
		return fmt.Errorf("failed to confirm attempt: %w", err)
	}
	if !won {
		s.logger.Debug("Lost confirm race, attempt already resolved",
			zap.String("attempt_id", attempt.ID))
		return nil
	}

	s.logger.Info("Attempt confirmed",
		zap.String("attempt_id", attempt.ID),
		zap.String("position_id", attempt.PositionID))

	s.recordResolution(ctx, attempt, from, db.RecordConfirmed)
	s.sendAck(ctx, from, "You're confirmed. We'll follow up with your call details shortly. Thank you!")

	position, err := s.store.GetPosition(ctx, attempt.PositionID)
	if err != nil {
		return fmt.Errorf("failed to load position after confirm: %w", err)
	}

	s.sendConfirmationEmail(ctx, attempt, position.Title)

	confirmed, err := s.store.CountAttemptsByStatus(ctx, attempt.PositionID, db.AttemptConfirmed)
	if err != nil {
		return fmt.Errorf("failed to count confirmed attempts: %w", err)
	}
	if confirmed >= position.RequiredQuantity && position.HiringStatus == db.HiringOpen {
		if err := s.store.SetPositionHiringStatus(ctx, attempt.PositionID, db.HiringCompleted); err != nil {
			return fmt.Errorf("failed to complete position: %w", err)
		}
		s.logger.Info("Position fully staffed",
			zap.String("position_id", attempt.PositionID),
			zap.Int("confirmed", confirmed))
	}

	return nil
}

// resolveDeclined transitions the attempt to declined, acknowledges the
// candidate, and advances the queue to the next candidate
func (s *Service) resolveDeclined(ctx context.Context, attempt *db.ContactAttempt, from string) error {
	won, err := s.store.TransitionAttempt(ctx, attempt.ID, db.AttemptContacted, db.AttemptDeclined)
	if err != nil {
		return fmt.Errorf("failed to decline attempt: %w", err)
	}
	if !won {
		s.logger.Debug("Lost decline race, attempt already resolved",
			zap.String("attempt_id", attempt.ID))
		return nil
	}

	s.logger.Info("Attempt declined",
		zap.String("attempt_id", attempt.ID),
		zap.String("position_id", attempt.PositionID))

	s.recordResolution(ctx, attempt, from, db.RecordDeclined)
	s.sendAck(ctx, from, "No problem, thanks for letting us know.")

	return s.AdvanceQueue(ctx, attempt.PositionID)
}

// recordResolution appends the terminal outcome to the notification log.
// Best effort: a failed write is captured, not propagated.
func (s *Service) recordResolution(ctx context.Context, attempt *db.ContactAttempt, from, recordType string) {
	rec := &db.NotificationRecord{
		ID:        uuid.New().String(),
		Type:      recordType,
		Recipient: from,
		CompanyID: s.cfg.CompanyID,
	}
	if err := s.store.InsertNotificationRecord(ctx, rec); err != nil {
		s.logger.Warn("Failed to record attempt resolution",
			zap.String("attempt_id", attempt.ID),
			zap.Error(err))
		s.alerter.Capture(ctx, "attempt resolution record failed", err)
	}
}

// sendAck fires a single acknowledgement back to the candidate. Best effort:
// the attempt is already resolved, so a failed ack is captured, not retried.
func (s *Service) sendAck(ctx context.Context, to, body string) {
	summary, err := s.pipeline.Run(ctx, []delivery.Notification{{
		SMS: &delivery.SMSPayload{
			To:   to,
			From: s.cfg.FromNumber,
			Body: body,
		},
		Record: delivery.RecordMeta{
			Type:      db.RecordCustomMessage,
			CompanyID: s.cfg.CompanyID,
		},
	}})
	if err != nil {
		s.alerter.Capture(ctx, "acknowledgement send failed", err)
		return
	}
	if summary.Failed() > 0 {
		s.logger.Warn("Acknowledgement send failed", zap.String("to", to))
	}
}

// sendConfirmationEmail follows the SMS acknowledgement with a written
// confirmation for candidates who have an email address on file. Best effort,
// like the ack.
func (s *Service) sendConfirmationEmail(ctx context.Context, attempt *db.ContactAttempt, title string) {
	candidate, err := s.store.GetCandidate(ctx, attempt.CandidateID)
	if err != nil {
		s.logger.Warn("Failed to load candidate for confirmation email",
			zap.String("attempt_id", attempt.ID),
			zap.Error(err))
		return
	}
	if candidate.Email == "" {
		return
	}

	summary, err := s.pipeline.Run(ctx, []delivery.Notification{{
		Email: &delivery.EmailPayload{
			To:      candidate.Email,
			Subject: fmt.Sprintf("Booking confirmed - %s", title),
			Body: fmt.Sprintf(
				"Hi %s, you're confirmed as %s. Your call details will follow on the call sheet.",
				candidate.Name, title),
		},
		Record: delivery.RecordMeta{
			Type:      db.RecordCustomMessage,
			MemberID:  candidate.MemberID,
			CompanyID: s.cfg.CompanyID,
		},
	}})
	if err != nil {
		s.alerter.Capture(ctx, "confirmation email send failed", err)
		return
	}
	if summary.Failed() > 0 {
		s.logger.Warn("Confirmation email send failed", zap.String("to", candidate.Email))
	}
}

// outreachBody composes the initial outreach message
func outreachBody(name, title string, deadline time.Time) string {
	return fmt.Sprintf(
		"Hi %s, we'd like to book you as %s. Reply YES to confirm or NO to pass. Please respond by %s.",
		name, title, deadline.Format("Mon Jan 2 3:04 PM"))
}
