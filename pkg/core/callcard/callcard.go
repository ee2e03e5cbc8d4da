package callcard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/core/delivery"
	"github.com/jparkhurst/crewcall/pkg/db"
)

// Store defines the database operations for call-card messaging
type Store interface {
	ReplaceCallCardPush(ctx context.Context, push *db.CallCardPush) error
	GetActiveCallCardPush(ctx context.Context, callSheetID string) (*db.CallCardPush, error)
	GetCallCardRecipients(ctx context.Context, callSheetID string) ([]db.CallCardRecipient, error)
	UpdateRecipientDeliveryStatus(ctx context.Context, recipientID, status string, at time.Time) error
	ResetRecipientDeliveryStatuses(ctx context.Context, callSheetID string) error
}

// Deliverer defines the delivery pipeline operations the service needs
type Deliverer interface {
	Run(ctx context.Context, notifications []delivery.Notification) (*delivery.Summary, error)
}

// Config holds call-card messaging parameters
type Config struct {
	FromNumber        string
	StatusCallbackURL string
	ContactCardURL    string
	CompanyID         string
}

// Service sends call cards and coordinates call-time pushes
type Service struct {
	store    Store
	pipeline Deliverer
	logger   *zap.Logger
	cfg      Config
}

// NewService creates the call-card service
func NewService(store Store, pipeline Deliverer, logger *zap.Logger, cfg Config) *Service {
	return &Service{
		store:    store,
		pipeline: pipeline,
		logger:   logger,
		cfg:      cfg,
	}
}
