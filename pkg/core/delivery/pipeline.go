package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/alert"
	"github.com/jparkhurst/crewcall/pkg/clients/smsclient"
	"github.com/jparkhurst/crewcall/pkg/db"
)

// SMSSender defines the outbound SMS operations the pipeline needs
type SMSSender interface {
	Send(ctx context.Context, msg smsclient.Message) (string, error)
}

// EmailSender defines the outbound email operations the pipeline needs
type EmailSender interface {
	SendEmail(to, subject, body string) error
}

// Store defines the database operations the pipeline needs
type Store interface {
	InsertNotificationRecord(ctx context.Context, rec *db.NotificationRecord) error
	HasNotificationRecord(ctx context.Context, recipient string, recordTypes ...string) (bool, error)
}

// Pipeline fans a notification out to many recipients without exceeding
// provider throughput and without one bad recipient failing the whole run.
type Pipeline struct {
	cfg     Config
	sms     SMSSender
	email   EmailSender
	store   Store
	alerter alert.Alerter
	logger  *zap.Logger
}

// NewPipeline creates a delivery pipeline with the given batching config
func NewPipeline(cfg Config, sms SMSSender, email EmailSender, store Store, alerter alert.Alerter, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		sms:     sms,
		email:   email,
		store:   store,
		alerter: alerter,
		logger:  logger,
	}
}

// Run delivers every notification, chunked per channel. Chunks are processed
// sequentially with a fixed inter-chunk delay; within a chunk, per-recipient
// sends run concurrently. A single recipient's failure is captured and
// reported without aborting the chunk or the run.
func (p *Pipeline) Run(ctx context.Context, notifications []Notification) (*Summary, error) {
	var smsBatch, emailBatch []Notification
	for _, n := range notifications {
		switch {
		case n.SMS != nil:
			smsBatch = append(smsBatch, n)
		case n.Email != nil:
			emailBatch = append(emailBatch, n)
		default:
			return nil, fmt.Errorf("notification has neither sms nor email payload")
		}
	}

	p.logger.Info("Starting delivery run",
		zap.Int("sms_count", len(smsBatch)),
		zap.Int("email_count", len(emailBatch)))

	summary := &Summary{}

	if err := p.runChannel(ctx, smsBatch, p.cfg.SMSBatchSize, summary); err != nil {
		return summary, err
	}
	if err := p.runChannel(ctx, emailBatch, p.cfg.EmailBatchSize, summary); err != nil {
		return summary, err
	}

	p.logger.Info("Delivery run completed",
		zap.Int("attempted", summary.Attempted()),
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int("failed", summary.Failed()))

	return summary, nil
}

// runChannel processes one channel's notifications in fixed-size chunks
func (p *Pipeline) runChannel(ctx context.Context, batch []Notification, chunkSize int, summary *Summary) error {
	if len(batch) == 0 {
		return nil
	}
	if chunkSize < 1 {
		chunkSize = 1
	}

	for start := 0; start < len(batch); start += chunkSize {
		if start > 0 && p.cfg.InterBatchDelay > 0 {
			select {
			case <-time.After(p.cfg.InterBatchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		end := start + chunkSize
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]

		p.logger.Debug("Processing chunk",
			zap.Int("offset", start),
			zap.Int("size", len(chunk)))

		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, n := range chunk {
			wg.Add(1)
			go func(n Notification) {
				defer wg.Done()
				result, err := p.sendOne(ctx, n)

				mu.Lock()
				defer mu.Unlock()
				p.record(summary, n, result, err)
			}(n)
		}
		wg.Wait()
	}

	return nil
}

// record updates the summary with one send outcome. Caller holds the lock.
func (p *Pipeline) record(summary *Summary, n Notification, providerID string, err error) {
	ch := &summary.SMS
	if n.Channel() == db.ChannelEmail {
		ch = &summary.Email
	}
	ch.Attempted++

	if err != nil {
		ch.Failed++
		summary.Failures = append(summary.Failures, Failure{
			Recipient: n.RecipientAddress(),
			Channel:   n.Channel(),
			Err:       err,
		})
		return
	}

	ch.Succeeded++
	summary.Sent = append(summary.Sent, SentResult{
		Recipient:  n.RecipientAddress(),
		Channel:    n.Channel(),
		ProviderID: providerID,
	})
}

// sendOne delivers a single notification and performs the post-send
// bookkeeping. Any error is captured by the caller, never propagated further.
func (p *Pipeline) sendOne(ctx context.Context, n Notification) (string, error) {
	var providerID string
	var err error

	switch {
	case n.SMS != nil:
		providerID, err = p.sendSMS(ctx, n)
	case n.Email != nil:
		if p.email == nil {
			err = fmt.Errorf("email sender not configured")
		} else {
			err = p.email.SendEmail(n.Email.To, n.Email.Subject, n.Email.Body)
		}
	}

	if err != nil {
		p.logger.Warn("Send failed",
			zap.String("recipient", n.RecipientAddress()),
			zap.String("channel", string(n.Channel())),
			zap.Error(err))
		p.alerter.Capture(ctx, fmt.Sprintf("delivery to %s failed", n.RecipientAddress()), err)
		return "", err
	}

	// The message is out; bookkeeping failures are captured but do not turn a
	// delivered message into a reported failure
	rec := &db.NotificationRecord{
		ID:          uuid.New().String(),
		Type:        n.Record.Type,
		Recipient:   n.RecipientAddress(),
		CallSheetID: n.Record.CallSheetID,
		MemberID:    n.Record.MemberID,
		CompanyID:   n.Record.CompanyID,
	}
	if n.SMS != nil {
		rec.Body = n.SMS.Body
	} else {
		rec.Body = n.Email.Subject
	}
	if recErr := p.store.InsertNotificationRecord(ctx, rec); recErr != nil {
		p.logger.Warn("Failed to write notification record",
			zap.String("recipient", n.RecipientAddress()),
			zap.Error(recErr))
		p.alerter.Capture(ctx, "notification record write failed", recErr)
	}

	if n.OnDelivered != nil {
		if hookErr := n.OnDelivered(ctx, providerID); hookErr != nil {
			p.logger.Warn("Post-delivery update failed",
				zap.String("recipient", n.RecipientAddress()),
				zap.Error(hookErr))
			p.alerter.Capture(ctx, "post-delivery update failed", hookErr)
		}
	}

	return providerID, nil
}

// sendSMS performs first-contact detection, then submits the message
func (p *Pipeline) sendSMS(ctx context.Context, n Notification) (string, error) {
	msg := smsclient.Message{
		To:                n.SMS.To,
		From:              n.SMS.From,
		Body:              n.SMS.Body,
		StatusCallbackURL: n.SMS.StatusCallbackURL,
		MediaURL:          n.SMS.MediaURL,
	}

	if n.SMS.AttachOnFirstContact && n.SMS.OneTimeMediaURL != "" {
		// A recipient who already received an outreach or call card message has
		// the one-time payload, whichever flow sent it first
		contacted, err := p.store.HasNotificationRecord(ctx, n.SMS.To, db.RecordOutreachSent, db.RecordCallCardSent)
		if err != nil {
			// Treat a failed lookup as a repeat contact; missing the one-time
			// attachment is preferable to failing the send
			p.logger.Warn("First-contact lookup failed",
				zap.String("recipient", n.SMS.To),
				zap.Error(err))
		} else if !contacted {
			p.logger.Debug("First contact detected, attaching one-time payload",
				zap.String("recipient", n.SMS.To))
			msg.MediaURL = n.SMS.OneTimeMediaURL
		}
	}

	return p.sms.Send(ctx, msg)
}
