package outreach

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/alert"
	"github.com/jparkhurst/crewcall/pkg/core/delivery"
	"github.com/jparkhurst/crewcall/pkg/db"
)

// Store defines the database operations the outreach workflow needs
type Store interface {
	GetPosition(ctx context.Context, positionID string) (*db.Position, error)
	SetPositionHiringStatus(ctx context.Context, positionID string, status db.HiringStatus) error
	GetCandidatesByPosition(ctx context.Context, positionID string) ([]db.Candidate, error)
	GetCandidate(ctx context.Context, candidateID string) (*db.Candidate, error)

	CreateContactAttempt(ctx context.Context, attempt *db.ContactAttempt) error
	GetContactAttempt(ctx context.Context, attemptID string) (*db.ContactAttempt, error)
	GetAttemptsByPosition(ctx context.Context, positionID string) ([]db.ContactAttempt, error)
	TransitionAttempt(ctx context.Context, attemptID string, from, to db.AttemptStatus) (bool, error)
	CountAttemptsByStatus(ctx context.Context, positionID string, status db.AttemptStatus) (int, error)
	HasActiveAttempt(ctx context.Context, positionID string) (bool, error)

	InsertOutboundMessage(ctx context.Context, msg *db.OutboundMessage) error
	GetLatestOutboundMessage(ctx context.Context, recipient string) (*db.OutboundMessage, error)
	InsertNotificationRecord(ctx context.Context, rec *db.NotificationRecord) error
}

// Deliverer defines the delivery pipeline operations the workflow needs
type Deliverer interface {
	Run(ctx context.Context, notifications []delivery.Notification) (*delivery.Summary, error)
}

// Config holds outreach workflow parameters
type Config struct {
	ResponseWindow    time.Duration
	StartInterval     time.Duration
	FromNumber        string
	StatusCallbackURL string
	ContactCardURL    string
	CompanyID         string
}

// Service owns the contact-attempt lifecycle and the position candidate queue
type Service struct {
	store    Store
	pipeline Deliverer
	throttle *Throttle
	alerter  alert.Alerter
	logger   *zap.Logger
	cfg      Config
}

// NewService creates the outreach workflow service
func NewService(store Store, pipeline Deliverer, alerter alert.Alerter, logger *zap.Logger, cfg Config) *Service {
	return &Service{
		store:    store,
		pipeline: pipeline,
		throttle: NewThrottle(cfg.StartInterval),
		alerter:  alerter,
		logger:   logger,
		cfg:      cfg,
	}
}
