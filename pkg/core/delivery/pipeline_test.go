package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/clients/smsclient"
	"github.com/jparkhurst/crewcall/pkg/db"
)

// mockSMSSender records sends and fails the configured recipients
type mockSMSSender struct {
	mu      sync.Mutex
	sent    []smsclient.Message
	failFor map[string]bool
}

func (m *mockSMSSender) Send(ctx context.Context, msg smsclient.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[msg.To] {
		return "", errors.New("provider rejected message")
	}
	m.sent = append(m.sent, msg)
	return "SM-" + msg.To, nil
}

func (m *mockSMSSender) messageTo(to string) *smsclient.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sent {
		if m.sent[i].To == to {
			return &m.sent[i]
		}
	}
	return nil
}

// mockEmailSender records sends and fails the configured recipients
type mockEmailSender struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
}

func (m *mockEmailSender) SendEmail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[to] {
		return errors.New("smtp rejected message")
	}
	m.sent = append(m.sent, to)
	return nil
}

// mockRecordStore tracks notification records for first-contact detection.
// prior maps a recipient to the record types already held before the run.
type mockRecordStore struct {
	mu        sync.Mutex
	records   []*db.NotificationRecord
	prior     map[string][]string
	insertErr error
	lookupErr error
}

func (m *mockRecordStore) InsertNotificationRecord(ctx context.Context, rec *db.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockRecordStore) HasNotificationRecord(ctx context.Context, recipient string, recordTypes ...string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return false, m.lookupErr
	}
	for _, held := range m.prior[recipient] {
		for _, want := range recordTypes {
			if held == want {
				return true, nil
			}
		}
	}
	return false, nil
}

type mockAlerter struct {
	mu       sync.Mutex
	captured []string
}

func (m *mockAlerter) Capture(ctx context.Context, message string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captured = append(m.captured, message)
}

func newTestPipeline(cfg Config, sms *mockSMSSender, email *mockEmailSender, store *mockRecordStore) (*Pipeline, *mockAlerter) {
	alerter := &mockAlerter{}
	var emailSender EmailSender
	if email != nil {
		emailSender = email
	}
	return NewPipeline(cfg, sms, emailSender, store, alerter, zap.NewNop()), alerter
}

func smsNotification(to string) Notification {
	return Notification{
		SMS: &SMSPayload{
			To:   to,
			From: "+15550001111",
			Body: "call card for " + to,
		},
		Record: RecordMeta{Type: db.RecordCallCardSent},
	}
}

func TestRun_SingleRecipientFailureDoesNotAbortTheRun(t *testing.T) {
	sms := &mockSMSSender{failFor: map[string]bool{"+15550000003": true}}
	store := &mockRecordStore{}
	pipeline, alerter := newTestPipeline(Config{SMSBatchSize: 2}, sms, nil, store)

	var batch []Notification
	for i := 1; i <= 5; i++ {
		batch = append(batch, smsNotification(fmt.Sprintf("+1555000000%d", i)))
	}

	summary, err := pipeline.Run(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Attempted())
	assert.Equal(t, 4, summary.Succeeded())
	assert.Equal(t, 1, summary.Failed())

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "+15550000003", summary.Failures[0].Recipient)

	// Recipients after the failing one were still processed
	assert.NotNil(t, sms.messageTo("+15550000004"))
	assert.NotNil(t, sms.messageTo("+15550000005"))

	// Records written only for successful sends
	assert.Len(t, store.records, 4)
	assert.NotEmpty(t, alerter.captured)
}

func TestRun_InterChunkDelay(t *testing.T) {
	sms := &mockSMSSender{}
	store := &mockRecordStore{}
	delay := 30 * time.Millisecond
	pipeline, _ := newTestPipeline(Config{SMSBatchSize: 2, InterBatchDelay: delay}, sms, nil, store)

	var batch []Notification
	for i := 1; i <= 6; i++ {
		batch = append(batch, smsNotification(fmt.Sprintf("+1555000000%d", i)))
	}

	// Three chunks of two means two inter-chunk delays
	start := time.Now()
	summary, err := pipeline.Run(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Succeeded())
	assert.GreaterOrEqual(t, time.Since(start), 2*delay)
}

func TestRun_CancelledBetweenChunks(t *testing.T) {
	sms := &mockSMSSender{}
	store := &mockRecordStore{}
	pipeline, _ := newTestPipeline(Config{SMSBatchSize: 1, InterBatchDelay: time.Minute}, sms, nil, store)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := pipeline.Run(ctx, []Notification{
		smsNotification("+15550000001"),
		smsNotification("+15550000002"),
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_FirstContactAttachesOneTimePayload(t *testing.T) {
	sms := &mockSMSSender{}
	store := &mockRecordStore{prior: map[string][]string{"+15550000002": {db.RecordCallCardSent}}}
	pipeline, _ := newTestPipeline(Config{SMSBatchSize: 10}, sms, nil, store)

	fresh := smsNotification("+15550000001")
	fresh.SMS.AttachOnFirstContact = true
	fresh.SMS.OneTimeMediaURL = "https://example.test/contact-card.vcf"

	repeat := smsNotification("+15550000002")
	repeat.SMS.AttachOnFirstContact = true
	repeat.SMS.OneTimeMediaURL = "https://example.test/contact-card.vcf"

	summary, err := pipeline.Run(context.Background(), []Notification{fresh, repeat})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded())

	// Never-contacted recipient gets the attachment, the repeat does not
	require.NotNil(t, sms.messageTo("+15550000001"))
	assert.Equal(t, "https://example.test/contact-card.vcf", sms.messageTo("+15550000001").MediaURL)
	require.NotNil(t, sms.messageTo("+15550000002"))
	assert.Empty(t, sms.messageTo("+15550000002").MediaURL)
}

func TestRun_PriorOutreachCountsAsContactForCallCards(t *testing.T) {
	sms := &mockSMSSender{}
	store := &mockRecordStore{prior: map[string][]string{"+15550000001": {db.RecordOutreachSent}}}
	pipeline, _ := newTestPipeline(Config{SMSBatchSize: 10}, sms, nil, store)

	// The recipient got the contact card with their outreach message; the
	// first call card must not attach it again
	n := smsNotification("+15550000001")
	n.SMS.AttachOnFirstContact = true
	n.SMS.OneTimeMediaURL = "https://example.test/contact-card.vcf"

	summary, err := pipeline.Run(context.Background(), []Notification{n})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded())

	require.NotNil(t, sms.messageTo("+15550000001"))
	assert.Empty(t, sms.messageTo("+15550000001").MediaURL)
}

func TestRun_FirstContactLookupFailureOmitsAttachment(t *testing.T) {
	sms := &mockSMSSender{}
	store := &mockRecordStore{lookupErr: errors.New("connection reset")}
	pipeline, _ := newTestPipeline(Config{SMSBatchSize: 10}, sms, nil, store)

	n := smsNotification("+15550000001")
	n.SMS.AttachOnFirstContact = true
	n.SMS.OneTimeMediaURL = "https://example.test/contact-card.vcf"

	summary, err := pipeline.Run(context.Background(), []Notification{n})
	require.NoError(t, err)

	// The send still goes out, just without the one-time payload
	assert.Equal(t, 1, summary.Succeeded())
	require.NotNil(t, sms.messageTo("+15550000001"))
	assert.Empty(t, sms.messageTo("+15550000001").MediaURL)
}

func TestRun_EmailPartitionedFromSMS(t *testing.T) {
	sms := &mockSMSSender{}
	email := &mockEmailSender{}
	store := &mockRecordStore{}
	pipeline, _ := newTestPipeline(Config{SMSBatchSize: 10, EmailBatchSize: 10}, sms, email, store)

	summary, err := pipeline.Run(context.Background(), []Notification{
		smsNotification("+15550000001"),
		{
			Email:  &EmailPayload{To: "crew@example.test", Subject: "Call card", Body: "Details attached"},
			Record: RecordMeta{Type: db.RecordCallCardSent},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SMS.Succeeded)
	assert.Equal(t, 1, summary.Email.Succeeded)
	assert.Len(t, email.sent, 1)
}

func TestRun_EmailWithoutSenderIsCapturedFailure(t *testing.T) {
	sms := &mockSMSSender{}
	store := &mockRecordStore{}
	pipeline, _ := newTestPipeline(Config{SMSBatchSize: 10, EmailBatchSize: 10}, sms, nil, store)

	summary, err := pipeline.Run(context.Background(), []Notification{{
		Email:  &EmailPayload{To: "crew@example.test", Subject: "Call card", Body: "Details"},
		Record: RecordMeta{Type: db.RecordCallCardSent},
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Email.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "crew@example.test", summary.Failures[0].Recipient)
}

func TestRun_OnDeliveredHookInvoked(t *testing.T) {
	sms := &mockSMSSender{}
	store := &mockRecordStore{}
	pipeline, _ := newTestPipeline(Config{SMSBatchSize: 10}, sms, nil, store)

	var gotProviderID string
	n := smsNotification("+15550000001")
	n.OnDelivered = func(ctx context.Context, providerID string) error {
		gotProviderID = providerID
		return nil
	}

	_, err := pipeline.Run(context.Background(), []Notification{n})
	require.NoError(t, err)
	assert.Equal(t, "SM-+15550000001", gotProviderID)
}

func TestRun_BookkeepingFailureDoesNotFailTheSend(t *testing.T) {
	sms := &mockSMSSender{}
	store := &mockRecordStore{insertErr: errors.New("disk full")}
	pipeline, alerter := newTestPipeline(Config{SMSBatchSize: 10}, sms, nil, store)

	summary, err := pipeline.Run(context.Background(), []Notification{smsNotification("+15550000001")})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded())
	assert.Zero(t, summary.Failed())
	assert.NotEmpty(t, alerter.captured)
}

func TestRun_EmptyPayloadRejected(t *testing.T) {
	sms := &mockSMSSender{}
	store := &mockRecordStore{}
	pipeline, _ := newTestPipeline(Config{SMSBatchSize: 10}, sms, nil, store)

	_, err := pipeline.Run(context.Background(), []Notification{{}})
	assert.Error(t, err)
}
