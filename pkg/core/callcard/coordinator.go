package callcard

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/core/delivery"
	"github.com/jparkhurst/crewcall/pkg/db"
)

// ApplyPush applies a call-time shift to a call sheet. With notify set, every
// recipient is re-informed with status-dependent wording and their delivery
// status updated. Without notify, the push is recorded and every recipient's
// delivery status rolls back to pending with no message sent. The reset path
// is idempotent.
func (s *Service) ApplyPush(ctx context.Context, push *db.CallCardPush) (*delivery.Summary, error) {
	s.logger.Info("Applying call card push",
		zap.String("call_sheet_id", push.CallSheetID),
		zap.Int("hours", push.Hours),
		zap.Int("minutes", push.Minutes),
		zap.Bool("notify", push.Notify))

	// Re-creating a push replaces the prior one; at most one active per sheet
	if err := s.store.ReplaceCallCardPush(ctx, push); err != nil {
		return nil, fmt.Errorf("failed to store call card push: %w", err)
	}

	if !push.Notify {
		if err := s.store.ResetRecipientDeliveryStatuses(ctx, push.CallSheetID); err != nil {
			return nil, fmt.Errorf("failed to reset recipient statuses: %w", err)
		}
		s.logger.Info("Push applied silently, recipient statuses reset",
			zap.String("call_sheet_id", push.CallSheetID))
		return &delivery.Summary{}, nil
	}

	recipients, err := s.store.GetCallCardRecipients(ctx, push.CallSheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load call card recipients: %w", err)
	}

	offset := push.Offset()
	notifications := make([]delivery.Notification, 0, len(recipients))
	for _, r := range recipients {
		r := r
		adjusted := r.CallTime.Add(offset)

		var body, nextStatus string
		switch r.DeliveryStatus {
		case db.DeliverySentCard, db.DeliveryPushed:
			// Already informed once, so the wording calls out the change
			body = pushedBody(r.Name, adjusted, push.DocumentRef)
			nextStatus = db.DeliveryPushed
		default:
			body = callCardBody(r.Name, adjusted, push.DocumentRef)
			nextStatus = db.DeliverySentCard
		}

		notifications = append(notifications, delivery.Notification{
			SMS: &delivery.SMSPayload{
				To:                r.Phone,
				From:              s.cfg.FromNumber,
				Body:              body,
				StatusCallbackURL: s.cfg.StatusCallbackURL,
			},
			Record: delivery.RecordMeta{
				Type:        db.RecordPushSent,
				CallSheetID: push.CallSheetID,
				MemberID:    r.MemberID,
				CompanyID:   s.cfg.CompanyID,
			},
			OnDelivered: func(ctx context.Context, providerID string) error {
				return s.store.UpdateRecipientDeliveryStatus(ctx, r.ID, nextStatus, time.Now())
			},
		})
	}

	summary, err := s.pipeline.Run(ctx, notifications)
	if err != nil {
		return summary, fmt.Errorf("failed to run push delivery: %w", err)
	}

	s.logger.Info("Push notifications sent",
		zap.String("call_sheet_id", push.CallSheetID),
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int("total", summary.Attempted()))

	return summary, nil
}

// pushedBody composes the call-time-change message for recipients who already
// received their call card
func pushedBody(name string, adjusted time.Time, documentURL string) string {
	body := fmt.Sprintf("Hi %s, your call time has been pushed. Your new call time is %s.",
		name, adjusted.Format("Mon Jan 2 3:04 PM"))
	if documentURL != "" {
		body += fmt.Sprintf(" Updated call sheet: %s", documentURL)
	}
	return body
}
