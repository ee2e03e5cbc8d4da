package outreach

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/db"
)

const testCompanyID = "3f1f9aa2-6aab-4a79-9cd9-7f5f33c7a3bb"

func newTestService(store *mockStore, deliverer *mockDeliverer) (*Service, *mockAlerter) {
	alerter := &mockAlerter{}
	svc := NewService(store, deliverer, alerter, zap.NewNop(), Config{
		ResponseWindow:    4 * time.Hour,
		FromNumber:        "+15550001111",
		StatusCallbackURL: "https://example.test/webhooks/sms/status",
		ContactCardURL:    "https://example.test/contact-card.vcf",
		CompanyID:         testCompanyID,
	})
	return svc, alerter
}

func seedPosition(store *mockStore, required int) *db.Position {
	position := &db.Position{
		ID:               "pos-1",
		ProjectID:        "proj-1",
		Title:            "Gaffer",
		RequiredQuantity: required,
		HiringStatus:     db.HiringOpen,
	}
	store.positions[position.ID] = position
	return position
}

func seedCandidate(store *mockStore, id, phone string, priority int) *db.Candidate {
	candidate := &db.Candidate{
		ID:         id,
		PositionID: "pos-1",
		MemberID:   "member-" + id,
		Name:       "Crew " + id,
		Phone:      phone,
		Priority:   priority,
	}
	store.candidates[id] = candidate
	return candidate
}

// seedContactedAttempt places a candidate in the contacted state with an
// outbound message, as if StartAttempt had already run
func seedContactedAttempt(store *mockStore, id, candidateID, phone string) *db.ContactAttempt {
	attempt := &db.ContactAttempt{
		ID:               id,
		PositionID:       "pos-1",
		CandidateID:      candidateID,
		Status:           db.AttemptContacted,
		ResponseDeadline: time.Now().Add(4 * time.Hour),
	}
	store.attempts[id] = attempt
	store.messages = append(store.messages, &db.OutboundMessage{
		ID:        "msg-" + id,
		AttemptID: id,
		Channel:   db.ChannelSMS,
		Recipient: phone,
	})
	return attempt
}

func TestStartAttempt_Success(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 1)
	seedCandidate(store, "cand-a", "+15550002222", 1)
	deliverer := &mockDeliverer{}
	svc, _ := newTestService(store, deliverer)

	deadline := time.Now().Add(4 * time.Hour)
	attempt, err := svc.StartAttempt(context.Background(), "pos-1", "cand-a", deadline)
	require.NoError(t, err)
	require.NotNil(t, attempt)

	assert.Equal(t, db.AttemptContacted, attempt.Status)
	assert.Equal(t, db.AttemptContacted, store.attempts[attempt.ID].Status)
	assert.Equal(t, deadline, store.attempts[attempt.ID].ResponseDeadline)

	// The outreach message goes out with the one-time contact card attached
	require.Len(t, deliverer.sent, 1)
	sms := deliverer.sent[0].SMS
	require.NotNil(t, sms)
	assert.Equal(t, "+15550002222", sms.To)
	assert.True(t, sms.AttachOnFirstContact)
	assert.Equal(t, "https://example.test/contact-card.vcf", sms.OneTimeMediaURL)
	assert.Contains(t, sms.Body, "Gaffer")

	// The send is logged for reply correlation
	require.Len(t, store.messages, 1)
	assert.Equal(t, attempt.ID, store.messages[0].AttemptID)
	assert.Equal(t, "SM-test", store.messages[0].ProviderID)
	assert.Equal(t, "+15550002222", store.messages[0].Recipient)
}

func TestStartAttempt_SendFailureStaysPending(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 1)
	seedCandidate(store, "cand-a", "+15550002222", 1)
	deliverer := &mockDeliverer{failFor: map[string]bool{"+15550002222": true}}
	svc, _ := newTestService(store, deliverer)

	attempt, err := svc.StartAttempt(context.Background(), "pos-1", "cand-a", time.Now().Add(time.Hour))
	require.Error(t, err)
	require.NotNil(t, attempt)

	// No retry, no transition, no outbound message row
	assert.Equal(t, db.AttemptPending, store.attempts[attempt.ID].Status)
	assert.Len(t, deliverer.sent, 1)
	assert.Empty(t, store.messages)
}

func TestStartAttempt_SecondActiveAttemptRejected(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 1)
	seedCandidate(store, "cand-a", "+15550002222", 1)
	seedContactedAttempt(store, "att-1", "cand-a", "+15550002222")
	deliverer := &mockDeliverer{}
	svc, _ := newTestService(store, deliverer)

	_, err := svc.StartAttempt(context.Background(), "pos-1", "cand-a", time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrConflict)
}

func TestHandleReply_ConfirmCompletesPosition(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 1)
	seedCandidate(store, "cand-a", "+15550002222", 1)
	seedContactedAttempt(store, "att-1", "cand-a", "+15550002222")
	deliverer := &mockDeliverer{}
	svc, _ := newTestService(store, deliverer)

	err := svc.HandleReply(context.Background(), "+15550002222", "YES")
	require.NoError(t, err)

	assert.Equal(t, db.AttemptConfirmed, store.attempts["att-1"].Status)
	assert.Equal(t, db.HiringCompleted, store.positions["pos-1"].HiringStatus)

	// Confirmation is acknowledged back to the candidate
	require.Len(t, deliverer.sent, 1)
	assert.Equal(t, "+15550002222", deliverer.sent[0].SMS.To)
	assert.Equal(t, db.RecordCustomMessage, deliverer.sent[0].Record.Type)

	// And recorded in the activity log
	require.Len(t, store.records, 1)
	assert.Equal(t, db.RecordConfirmed, store.records[0].Type)
}

func TestHandleReply_ConfirmEmailsCandidateWithAddress(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 1)
	seedCandidate(store, "cand-a", "+15550002222", 1).Email = "cand-a@example.test"
	seedContactedAttempt(store, "att-1", "cand-a", "+15550002222")
	deliverer := &mockDeliverer{}
	svc, _ := newTestService(store, deliverer)

	err := svc.HandleReply(context.Background(), "+15550002222", "yes")
	require.NoError(t, err)

	// The SMS acknowledgement is followed by a written confirmation
	require.Len(t, deliverer.sent, 2)
	assert.Equal(t, "+15550002222", deliverer.sent[0].SMS.To)

	email := deliverer.emailTo("cand-a@example.test")
	require.NotNil(t, email)
	assert.Contains(t, email.Subject, "Gaffer")
	assert.Contains(t, email.Body, "Crew cand-a")
}

func TestHandleReply_ConfirmLeavesPositionOpenBelowQuantity(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 2)
	seedCandidate(store, "cand-a", "+15550002222", 1)
	seedContactedAttempt(store, "att-1", "cand-a", "+15550002222")
	deliverer := &mockDeliverer{}
	svc, _ := newTestService(store, deliverer)

	err := svc.HandleReply(context.Background(), "+15550002222", "yes")
	require.NoError(t, err)

	assert.Equal(t, db.AttemptConfirmed, store.attempts["att-1"].Status)
	assert.Equal(t, db.HiringOpen, store.positions["pos-1"].HiringStatus)
}

func TestHandleReply_DeclineAdvancesToNextCandidate(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 1)
	seedCandidate(store, "cand-a", "+15550002222", 1)
	seedCandidate(store, "cand-b", "+15550003333", 2)
	seedContactedAttempt(store, "att-1", "cand-a", "+15550002222")
	deliverer := &mockDeliverer{}
	svc, _ := newTestService(store, deliverer)

	err := svc.HandleReply(context.Background(), "+15550002222", "No")
	require.NoError(t, err)

	assert.Equal(t, db.AttemptDeclined, store.attempts["att-1"].Status)

	// The next candidate was contacted in the same pass
	next := store.attemptByCandidate("cand-b")
	require.NotNil(t, next)
	assert.Equal(t, db.AttemptContacted, next.Status)

	// Two sends: the decline acknowledgement and the next outreach
	require.Len(t, deliverer.sent, 2)
	assert.Equal(t, "+15550002222", deliverer.sent[0].SMS.To)
	assert.Equal(t, "+15550003333", deliverer.sent[1].SMS.To)
}

func TestHandleReply_UnknownLoggedWithoutTransition(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 1)
	seedCandidate(store, "cand-a", "+15550002222", 1)
	seedContactedAttempt(store, "att-1", "cand-a", "+15550002222")
	deliverer := &mockDeliverer{}
	svc, _ := newTestService(store, deliverer)

	err := svc.HandleReply(context.Background(), "+15550002222", "what time is the call?")
	require.NoError(t, err)

	assert.Equal(t, db.AttemptContacted, store.attempts["att-1"].Status)
	assert.Empty(t, deliverer.sent)

	require.Len(t, store.records, 1)
	assert.Equal(t, db.RecordUnknownReply, store.records[0].Type)
	assert.Equal(t, "what time is the call?", store.records[0].Body)
}

func TestHandleReply_IgnoredAfterResolution(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 1)
	seedCandidate(store, "cand-a", "+15550002222", 1)
	attempt := seedContactedAttempt(store, "att-1", "cand-a", "+15550002222")
	attempt.Status = db.AttemptConfirmed
	deliverer := &mockDeliverer{}
	svc, _ := newTestService(store, deliverer)

	// A late decline after confirmation must not flip the attempt
	err := svc.HandleReply(context.Background(), "+15550002222", "no")
	require.NoError(t, err)

	assert.Equal(t, db.AttemptConfirmed, store.attempts["att-1"].Status)
	assert.Empty(t, deliverer.sent)
	assert.Empty(t, store.records)
}

func TestHandleReply_NoOutboundMessageForSender(t *testing.T) {
	store := newMockStore()
	deliverer := &mockDeliverer{}
	svc, _ := newTestService(store, deliverer)

	err := svc.HandleReply(context.Background(), "+15559999999", "yes")
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestHandleDeadlineExpiry_AdvancesQueue(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 1)
	seedCandidate(store, "cand-a", "+15550002222", 1)
	seedCandidate(store, "cand-b", "+15550003333", 2)
	seedContactedAttempt(store, "att-1", "cand-a", "+15550002222")
	deliverer := &mockDeliverer{}
	svc, _ := newTestService(store, deliverer)

	err := svc.HandleDeadlineExpiry(context.Background(), "att-1")
	require.NoError(t, err)

	assert.Equal(t, db.AttemptNoResponse, store.attempts["att-1"].Status)

	next := store.attemptByCandidate("cand-b")
	require.NotNil(t, next)
	assert.Equal(t, db.AttemptContacted, next.Status)
}

func TestHandleDeadlineExpiry_NoOpWhenAlreadyResolved(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 1)
	seedCandidate(store, "cand-a", "+15550002222", 1)
	seedCandidate(store, "cand-b", "+15550003333", 2)
	attempt := seedContactedAttempt(store, "att-1", "cand-a", "+15550002222")
	attempt.Status = db.AttemptConfirmed
	deliverer := &mockDeliverer{}
	svc, _ := newTestService(store, deliverer)

	// Expiry firing after a reply already resolved the attempt does nothing
	err := svc.HandleDeadlineExpiry(context.Background(), "att-1")
	require.NoError(t, err)

	assert.Equal(t, db.AttemptConfirmed, store.attempts["att-1"].Status)
	assert.Nil(t, store.attemptByCandidate("cand-b"))
	assert.Empty(t, deliverer.sent)
}

func TestRecordResolutionFailureIsCaptured(t *testing.T) {
	store := newMockStore()
	seedPosition(store, 1)
	seedCandidate(store, "cand-a", "+15550002222", 1)
	seedContactedAttempt(store, "att-1", "cand-a", "+15550002222")
	store.insertRecordErr = db.ErrConflict
	deliverer := &mockDeliverer{}
	svc, alerter := newTestService(store, deliverer)

	// Bookkeeping failures never block the resolution itself
	err := svc.HandleReply(context.Background(), "+15550002222", "yes")
	require.NoError(t, err)

	assert.Equal(t, db.AttemptConfirmed, store.attempts["att-1"].Status)
	assert.NotEmpty(t, alerter.captured)
}
