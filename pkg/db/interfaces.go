package db

import (
	"context"
	"time"
)

// Database defines the full set of store operations. postgres.DB implements
// this interface; services depend on narrower consumer-defined subsets.
type Database interface {
	// Positions and candidates
	GetPosition(ctx context.Context, positionID string) (*Position, error)
	SetPositionHiringStatus(ctx context.Context, positionID string, status HiringStatus) error
	GetCandidatesByPosition(ctx context.Context, positionID string) ([]Candidate, error)
	GetCandidate(ctx context.Context, candidateID string) (*Candidate, error)
	UpdateCandidatePriority(ctx context.Context, candidateID string, priority int) error

	// Contact attempts
	CreateContactAttempt(ctx context.Context, attempt *ContactAttempt) error
	GetContactAttempt(ctx context.Context, attemptID string) (*ContactAttempt, error)
	GetAttemptsByPosition(ctx context.Context, positionID string) ([]ContactAttempt, error)
	TransitionAttempt(ctx context.Context, attemptID string, from, to AttemptStatus) (bool, error)
	CountAttemptsByStatus(ctx context.Context, positionID string, status AttemptStatus) (int, error)
	HasActiveAttempt(ctx context.Context, positionID string) (bool, error)
	GetDueAttempts(ctx context.Context, now time.Time) ([]ContactAttempt, error)

	// Outbound messages
	InsertOutboundMessage(ctx context.Context, msg *OutboundMessage) error
	GetLatestOutboundMessage(ctx context.Context, recipient string) (*OutboundMessage, error)

	// Notification records
	InsertNotificationRecord(ctx context.Context, rec *NotificationRecord) error
	HasNotificationRecord(ctx context.Context, recipient string, recordTypes ...string) (bool, error)
	ListNotificationRecords(ctx context.Context, companyID string, limit int) ([]NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, recordID string) error

	// Call card pushes and recipients
	ReplaceCallCardPush(ctx context.Context, push *CallCardPush) error
	GetActiveCallCardPush(ctx context.Context, callSheetID string) (*CallCardPush, error)
	GetCallCardRecipients(ctx context.Context, callSheetID string) ([]CallCardRecipient, error)
	UpdateRecipientDeliveryStatus(ctx context.Context, recipientID, status string, at time.Time) error
	ResetRecipientDeliveryStatuses(ctx context.Context, callSheetID string) error
}
