package db

import "time"

// HiringStatus is the lifecycle state of a position.
type HiringStatus string

const (
	HiringOpen      HiringStatus = "open"
	HiringClosed    HiringStatus = "closed"
	HiringCompleted HiringStatus = "completed"
)

// AttemptStatus is the lifecycle state of a contact attempt.
// Valid transitions: pending -> contacted -> {confirmed, declined, no_response}.
type AttemptStatus string

const (
	AttemptPending    AttemptStatus = "pending"
	AttemptContacted  AttemptStatus = "contacted"
	AttemptConfirmed  AttemptStatus = "confirmed"
	AttemptDeclined   AttemptStatus = "declined"
	AttemptNoResponse AttemptStatus = "no_response"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptConfirmed || s == AttemptDeclined || s == AttemptNoResponse
}

// Channel identifies the transport an outbound message was sent over.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Delivery statuses for call card recipients.
const (
	DeliveryPending  = "pending"
	DeliverySentCard = "sent-call-card"
	DeliveryPushed   = "pushed"
	DeliveryFailed   = "failed"
)

// Notification record types written by the delivery pipeline and webhooks.
const (
	RecordOutreachSent   = "outreach-sent"
	RecordCallCardSent   = "call-card-sent"
	RecordPushSent       = "push-sent"
	RecordConfirmed      = "confirmed"
	RecordDeclined       = "declined"
	RecordUnknownReply   = "unknown-reply"
	RecordCustomMessage  = "custom-message"
	RecordStatusSent     = "sent"
	RecordStatusDelivery = "delivered"
	RecordStatusFailed   = "failed"
)

// Position is a role to fill on a project. Positions are never deleted, only
// status-transitioned.
type Position struct {
	ID               string
	ProjectID        string
	Title            string
	RequiredQuantity int
	HiringStatus     HiringStatus
	CreatedAt        time.Time
}

// Candidate is a crew member associated with a position. Lower priority means
// contacted first.
type Candidate struct {
	ID         string
	PositionID string
	MemberID   string
	Name       string
	Phone      string
	Email      string
	Priority   int
	CreatedAt  time.Time
}

// ContactAttempt is one outreach instance for one candidate on one position.
// Rows are retained for audit and never deleted.
type ContactAttempt struct {
	ID               string
	PositionID       string
	CandidateID      string
	Status           AttemptStatus
	ResponseDeadline time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OutboundMessage is a logged send tied to a contact attempt. Immutable after
// creation; inbound replies are correlated against the most recent row for a
// recipient address.
type OutboundMessage struct {
	ID         string
	AttemptID  string
	Channel    Channel
	ProviderID string
	Recipient  string
	Body       string
	CreatedAt  time.Time
}

// NotificationRecord is a generic append-only log entry for every outbound and
// inbound communication event. The read flag is the single mutable field and
// only serves the company-facing feed.
type NotificationRecord struct {
	ID          string
	Type        string
	Recipient   string
	CallSheetID string
	MemberID    string
	CompanyID   string
	Body        string
	Read        bool
	CreatedAt   time.Time
}

// CallCardPush is a time shift applied to a call sheet. At most one active
// push per call sheet; applying a new one replaces the prior row.
type CallCardPush struct {
	ID          string
	CallSheetID string
	Hours       int
	Minutes     int
	Notify      bool
	DocumentRef string
	CreatedAt   time.Time
}

// Offset returns the push's time shift as a duration.
func (p CallCardPush) Offset() time.Duration {
	return time.Duration(p.Hours)*time.Hour + time.Duration(p.Minutes)*time.Minute
}

// CallCardRecipient is one crew member on a call sheet together with their
// call time and delivery state.
type CallCardRecipient struct {
	ID              string
	CallSheetID     string
	MemberID        string
	Name            string
	Phone           string
	Email           string
	CallTime        time.Time
	DeliveryStatus  string
	StatusUpdatedAt time.Time
}
