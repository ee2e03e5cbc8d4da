package delivery

import (
	"context"
	"time"

	"github.com/jparkhurst/crewcall/pkg/db"
)

// Config holds the batching parameters for a pipeline. Distinct chunk sizes
// per channel reflect differing provider limits.
type Config struct {
	SMSBatchSize    int
	EmailBatchSize  int
	InterBatchDelay time.Duration
}

// SMSPayload is the SMS kind of an outbound notification
type SMSPayload struct {
	To                string
	From              string
	Body              string
	StatusCallbackURL string
	MediaURL          string

	// AttachOnFirstContact asks the pipeline to attach OneTimeMediaURL when
	// the recipient has never been sent an outreach or call card message
	AttachOnFirstContact bool
	OneTimeMediaURL      string
}

// EmailPayload is the email kind of an outbound notification
type EmailPayload struct {
	To      string
	Subject string
	Body    string
	Tags    []string
}

// RecordMeta carries the notification-record fields written on a successful
// send
type RecordMeta struct {
	Type        string
	CallSheetID string
	MemberID    string
	CompanyID   string
}

// DeliveredFunc is invoked after a successful send with the provider's
// external message ID (empty for email)
type DeliveredFunc func(ctx context.Context, providerID string) error

// Notification is a tagged variant over the SMS and email payload kinds.
// Exactly one of SMS and Email must be set.
type Notification struct {
	SMS         *SMSPayload
	Email       *EmailPayload
	Record      RecordMeta
	OnDelivered DeliveredFunc
}

// Channel returns the transport this notification is sent over
func (n Notification) Channel() db.Channel {
	if n.SMS != nil {
		return db.ChannelSMS
	}
	return db.ChannelEmail
}

// RecipientAddress returns the destination phone number or email address
func (n Notification) RecipientAddress() string {
	if n.SMS != nil {
		return n.SMS.To
	}
	if n.Email != nil {
		return n.Email.To
	}
	return ""
}

// SentResult describes one successful send
type SentResult struct {
	Recipient  string
	Channel    db.Channel
	ProviderID string
}

// Failure describes one captured per-recipient send failure
type Failure struct {
	Recipient string
	Channel   db.Channel
	Err       error
}

// ChannelSummary counts outcomes for one channel
type ChannelSummary struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Summary is the pipeline's return value, sufficient for the caller to report
// "sent to K of N"
type Summary struct {
	SMS      ChannelSummary
	Email    ChannelSummary
	Sent     []SentResult
	Failures []Failure
}

// Attempted returns the total sends attempted across channels
func (s *Summary) Attempted() int {
	return s.SMS.Attempted + s.Email.Attempted
}

// Succeeded returns the total successful sends across channels
func (s *Summary) Succeeded() int {
	return s.SMS.Succeeded + s.Email.Succeeded
}

// Failed returns the total failed sends across channels
func (s *Summary) Failed() int {
	return s.SMS.Failed + s.Email.Failed
}
