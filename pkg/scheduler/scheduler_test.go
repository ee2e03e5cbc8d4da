package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/jparkhurst/crewcall/pkg/db"
)

type mockStore struct {
	due    []db.ContactAttempt
	dueErr error
}

func (m *mockStore) GetDueAttempts(ctx context.Context, now time.Time) ([]db.ContactAttempt, error) {
	if m.dueErr != nil {
		return nil, m.dueErr
	}
	return m.due, nil
}

type mockResolver struct {
	resolved []string
	failFor  map[string]bool
}

func (m *mockResolver) HandleDeadlineExpiry(ctx context.Context, attemptID string) error {
	if m.failFor[attemptID] {
		return errors.New("advance failed")
	}
	m.resolved = append(m.resolved, attemptID)
	return nil
}

type mockAlerter struct {
	captured []string
}

func (m *mockAlerter) Capture(ctx context.Context, message string, err error) {
	m.captured = append(m.captured, message)
}

func TestTick_ResolvesEveryDueAttempt(t *testing.T) {
	store := &mockStore{due: []db.ContactAttempt{
		{ID: "att-1"}, {ID: "att-2"}, {ID: "att-3"},
	}}
	resolver := &mockResolver{}
	alerter := &mockAlerter{}
	sched := New(store, resolver, alerter, zap.NewNop(), time.Second)

	sched.Tick(context.Background())

	assert.Equal(t, []string{"att-1", "att-2", "att-3"}, resolver.resolved)
	assert.Empty(t, alerter.captured)
}

func TestTick_OneFailureDoesNotBlockTheRest(t *testing.T) {
	store := &mockStore{due: []db.ContactAttempt{
		{ID: "att-1"}, {ID: "att-2"}, {ID: "att-3"},
	}}
	resolver := &mockResolver{failFor: map[string]bool{"att-2": true}}
	alerter := &mockAlerter{}
	sched := New(store, resolver, alerter, zap.NewNop(), time.Second)

	sched.Tick(context.Background())

	assert.Equal(t, []string{"att-1", "att-3"}, resolver.resolved)
	assert.Len(t, alerter.captured, 1)
}

func TestTick_QueryFailureIsCaptured(t *testing.T) {
	store := &mockStore{dueErr: errors.New("connection refused")}
	resolver := &mockResolver{}
	alerter := &mockAlerter{}
	sched := New(store, resolver, alerter, zap.NewNop(), time.Second)

	sched.Tick(context.Background())

	assert.Empty(t, resolver.resolved)
	assert.Len(t, alerter.captured, 1)
}

func TestRun_CancellationIsACleanStop(t *testing.T) {
	store := &mockStore{}
	resolver := &mockResolver{}
	sched := New(store, resolver, &mockAlerter{}, zap.NewNop(), 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := sched.Run(ctx)
	assert.NoError(t, err)
}
