package outreach

import (
	"context"
	"errors"
	"sort"

	"github.com/jparkhurst/crewcall/pkg/core/delivery"
	"github.com/jparkhurst/crewcall/pkg/db"
)

// mockStore is an in-memory test double for the outreach Store
type mockStore struct {
	positions  map[string]*db.Position
	candidates map[string]*db.Candidate
	attempts   map[string]*db.ContactAttempt
	messages   []*db.OutboundMessage
	records    []*db.NotificationRecord

	createAttemptErr error
	insertRecordErr  error
}

func newMockStore() *mockStore {
	return &mockStore{
		positions:  make(map[string]*db.Position),
		candidates: make(map[string]*db.Candidate),
		attempts:   make(map[string]*db.ContactAttempt),
	}
}

func (m *mockStore) GetPosition(ctx context.Context, positionID string) (*db.Position, error) {
	p, ok := m.positions[positionID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockStore) SetPositionHiringStatus(ctx context.Context, positionID string, status db.HiringStatus) error {
	p, ok := m.positions[positionID]
	if !ok {
		return db.ErrNotFound
	}
	p.HiringStatus = status
	return nil
}

func (m *mockStore) GetCandidatesByPosition(ctx context.Context, positionID string) ([]db.Candidate, error) {
	var out []db.Candidate
	for _, c := range m.candidates {
		if c.PositionID == positionID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (m *mockStore) GetCandidate(ctx context.Context, candidateID string) (*db.Candidate, error) {
	c, ok := m.candidates[candidateID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockStore) CreateContactAttempt(ctx context.Context, attempt *db.ContactAttempt) error {
	if m.createAttemptErr != nil {
		return m.createAttemptErr
	}
	for _, a := range m.attempts {
		if a.PositionID == attempt.PositionID && a.CandidateID == attempt.CandidateID && !a.Status.IsTerminal() {
			return db.ErrConflict
		}
	}
	copied := *attempt
	m.attempts[attempt.ID] = &copied
	return nil
}

func (m *mockStore) GetContactAttempt(ctx context.Context, attemptID string) (*db.ContactAttempt, error) {
	a, ok := m.attempts[attemptID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *mockStore) GetAttemptsByPosition(ctx context.Context, positionID string) ([]db.ContactAttempt, error) {
	var out []db.ContactAttempt
	for _, a := range m.attempts {
		if a.PositionID == positionID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockStore) TransitionAttempt(ctx context.Context, attemptID string, from, to db.AttemptStatus) (bool, error) {
	a, ok := m.attempts[attemptID]
	if !ok {
		return false, nil
	}
	if a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (m *mockStore) CountAttemptsByStatus(ctx context.Context, positionID string, status db.AttemptStatus) (int, error) {
	count := 0
	for _, a := range m.attempts {
		if a.PositionID == positionID && a.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *mockStore) HasActiveAttempt(ctx context.Context, positionID string) (bool, error) {
	for _, a := range m.attempts {
		if a.PositionID == positionID && !a.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) InsertOutboundMessage(ctx context.Context, msg *db.OutboundMessage) error {
	copied := *msg
	m.messages = append(m.messages, &copied)
	return nil
}

func (m *mockStore) GetLatestOutboundMessage(ctx context.Context, recipient string) (*db.OutboundMessage, error) {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Recipient == recipient {
			copied := *m.messages[i]
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *mockStore) InsertNotificationRecord(ctx context.Context, rec *db.NotificationRecord) error {
	if m.insertRecordErr != nil {
		return m.insertRecordErr
	}
	copied := *rec
	m.records = append(m.records, &copied)
	return nil
}

// attemptByCandidate returns the single attempt for a candidate, or nil
func (m *mockStore) attemptByCandidate(candidateID string) *db.ContactAttempt {
	for _, a := range m.attempts {
		if a.CandidateID == candidateID {
			return a
		}
	}
	return nil
}

// mockDeliverer is a test double for the delivery pipeline. Recipients listed
// in failFor have their sends fail; everything else succeeds.
type mockDeliverer struct {
	sent    []delivery.Notification
	failFor map[string]bool
	runErr  error
}

func (m *mockDeliverer) Run(ctx context.Context, notifications []delivery.Notification) (*delivery.Summary, error) {
	if m.runErr != nil {
		return nil, m.runErr
	}
	summary := &delivery.Summary{}
	for _, n := range notifications {
		m.sent = append(m.sent, n)
		ch := &summary.SMS
		if n.Email != nil {
			ch = &summary.Email
		}
		addr := n.RecipientAddress()
		ch.Attempted++
		if m.failFor[addr] {
			ch.Failed++
			summary.Failures = append(summary.Failures, delivery.Failure{
				Recipient: addr,
				Channel:   n.Channel(),
				Err:       errors.New("provider rejected message"),
			})
			continue
		}
		ch.Succeeded++
		summary.Sent = append(summary.Sent, delivery.SentResult{
			Recipient:  addr,
			Channel:    n.Channel(),
			ProviderID: "SM-test",
		})
	}
	return summary, nil
}

// emailTo returns the email payload sent to an address, or nil
func (m *mockDeliverer) emailTo(to string) *delivery.EmailPayload {
	for _, n := range m.sent {
		if n.Email != nil && n.Email.To == to {
			return n.Email
		}
	}
	return nil
}

// mockAlerter counts captured failures
type mockAlerter struct {
	captured []string
}

func (m *mockAlerter) Capture(ctx context.Context, message string, err error) {
	m.captured = append(m.captured, message)
}
