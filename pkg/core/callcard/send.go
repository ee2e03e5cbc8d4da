package callcard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/core/delivery"
	"github.com/jparkhurst/crewcall/pkg/db"
)

// SendCallCards fans a call card out to every recipient on a call sheet, by
// SMS and additionally by email for recipients with an address on file. An
// active push on the sheet shifts every announced call time, so a late send
// never announces a stale time. Per-recipient failures are isolated by the
// pipeline; the returned summary lets the caller report "sent to K of N".
func (s *Service) SendCallCards(ctx context.Context, callSheetID, documentURL string) (*delivery.Summary, error) {
	s.logger.Info("Sending call cards", zap.String("call_sheet_id", callSheetID))

	recipients, err := s.store.GetCallCardRecipients(ctx, callSheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load call card recipients: %w", err)
	}
	if len(recipients) == 0 {
		s.logger.Info("Call sheet has no recipients", zap.String("call_sheet_id", callSheetID))
		return &delivery.Summary{}, nil
	}

	var offset time.Duration
	push, err := s.store.GetActiveCallCardPush(ctx, callSheetID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to load call card push: %w", err)
	}
	if push != nil {
		offset = push.Offset()
		s.logger.Info("Active push shifts call times",
			zap.String("call_sheet_id", callSheetID),
			zap.Duration("offset", offset))
	}

	notifications := make([]delivery.Notification, 0, len(recipients))
	for _, r := range recipients {
		r := r
		callTime := r.CallTime.Add(offset)
		body := callCardBody(r.Name, callTime, documentURL)

		notifications = append(notifications, delivery.Notification{
			SMS: &delivery.SMSPayload{
				To:                   r.Phone,
				From:                 s.cfg.FromNumber,
				Body:                 body,
				StatusCallbackURL:    s.cfg.StatusCallbackURL,
				AttachOnFirstContact: true,
				OneTimeMediaURL:      s.cfg.ContactCardURL,
			},
			Record: delivery.RecordMeta{
				Type:        db.RecordCallCardSent,
				CallSheetID: callSheetID,
				MemberID:    r.MemberID,
				CompanyID:   s.cfg.CompanyID,
			},
			OnDelivered: func(ctx context.Context, providerID string) error {
				return s.store.UpdateRecipientDeliveryStatus(ctx, r.ID, db.DeliverySentCard, time.Now())
			},
		})

		if r.Email == "" {
			continue
		}
		notifications = append(notifications, delivery.Notification{
			Email: &delivery.EmailPayload{
				To:      r.Email,
				Subject: fmt.Sprintf("Call card - %s", callTime.Format("Mon Jan 2 3:04 PM")),
				Body:    body,
			},
			Record: delivery.RecordMeta{
				Type:        db.RecordCallCardSent,
				CallSheetID: callSheetID,
				MemberID:    r.MemberID,
				CompanyID:   s.cfg.CompanyID,
			},
		})
	}

	summary, err := s.pipeline.Run(ctx, notifications)
	if err != nil {
		return summary, fmt.Errorf("failed to run call card delivery: %w", err)
	}

	s.logger.Info("Call cards sent",
		zap.String("call_sheet_id", callSheetID),
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int("total", summary.Attempted()))

	return summary, nil
}

// callCardBody composes the call-card message
func callCardBody(name string, callTime time.Time, documentURL string) string {
	body := fmt.Sprintf("Hi %s, your call time is %s.",
		name, callTime.Format("Mon Jan 2 3:04 PM"))
	if documentURL != "" {
		body += fmt.Sprintf(" Call sheet: %s", documentURL)
	}
	return body
}
