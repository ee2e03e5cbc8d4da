package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jparkhurst/crewcall/pkg/db"
)

const uniqueViolation = "23505"

// CreateContactAttempt inserts a new attempt in pending status. Returns
// db.ErrConflict if an active attempt already exists for the
// (position, candidate) pair, enforced by the partial unique index.
func (d *DB) CreateContactAttempt(ctx context.Context, attempt *db.ContactAttempt) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO contact_attempt (id, position_id, candidate_id, status, response_deadline)
		VALUES ($1, $2, $3, $4, $5)
	`, attempt.ID, attempt.PositionID, attempt.CandidateID, attempt.Status, attempt.ResponseDeadline)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("attempt for position %s candidate %s: %w",
				attempt.PositionID, attempt.CandidateID, db.ErrConflict)
		}
		return fmt.Errorf("failed to insert contact attempt: %w", err)
	}
	return nil
}

// GetContactAttempt retrieves a single attempt by ID
func (d *DB) GetContactAttempt(ctx context.Context, attemptID string) (*db.ContactAttempt, error) {
	var a db.ContactAttempt
	err := d.pool.QueryRow(ctx, `
		SELECT id, position_id, candidate_id, status, response_deadline, created_at, updated_at
		FROM contact_attempt
		WHERE id = $1
	`, attemptID).Scan(&a.ID, &a.PositionID, &a.CandidateID, &a.Status, &a.ResponseDeadline, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("contact attempt %s: %w", attemptID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query contact attempt: %w", err)
	}
	return &a, nil
}

// GetAttemptsByPosition retrieves all attempts for a position, oldest first
func (d *DB) GetAttemptsByPosition(ctx context.Context, positionID string) ([]db.ContactAttempt, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, position_id, candidate_id, status, response_deadline, created_at, updated_at
		FROM contact_attempt
		WHERE position_id = $1
		ORDER BY created_at ASC
	`, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact attempts: %w", err)
	}
	defer rows.Close()

	var attempts []db.ContactAttempt
	for rows.Next() {
		var a db.ContactAttempt
		if err := rows.Scan(&a.ID, &a.PositionID, &a.CandidateID, &a.Status, &a.ResponseDeadline, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contact attempts: %w", err)
	}
	return attempts, nil
}

// TransitionAttempt performs a conditional status update. It returns true if
// this caller won the transition and false if the attempt was no longer in the
// expected status. Concurrent timer-fire and reply-arrival races resolve here:
// exactly one writer observes true.
func (d *DB) TransitionAttempt(ctx context.Context, attemptID string, from, to db.AttemptStatus) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		UPDATE contact_attempt
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, attemptID, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to transition contact attempt: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CountAttemptsByStatus counts a position's attempts in the given status
func (d *DB) CountAttemptsByStatus(ctx context.Context, positionID string, status db.AttemptStatus) (int, error) {
	var count int
	err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM contact_attempt WHERE position_id = $1 AND status = $2
	`, positionID, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count contact attempts: %w", err)
	}
	return count, nil
}

// HasActiveAttempt reports whether any attempt for the position is pending or
// contacted
func (d *DB) HasActiveAttempt(ctx context.Context, positionID string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM contact_attempt
			WHERE position_id = $1 AND status IN ('pending', 'contacted')
		)
	`, positionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active attempts: %w", err)
	}
	return exists, nil
}

// GetDueAttempts retrieves contacted attempts whose response deadline has
// passed. The scheduler polls this to implement durable suspension.
func (d *DB) GetDueAttempts(ctx context.Context, now time.Time) ([]db.ContactAttempt, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, position_id, candidate_id, status, response_deadline, created_at, updated_at
		FROM contact_attempt
		WHERE status = 'contacted' AND response_deadline <= $1
		ORDER BY response_deadline ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due attempts: %w", err)
	}
	defer rows.Close()

	var attempts []db.ContactAttempt
	for rows.Next() {
		var a db.ContactAttempt
		if err := rows.Scan(&a.ID, &a.PositionID, &a.CandidateID, &a.Status, &a.ResponseDeadline, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan due attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due attempts: %w", err)
	}
	return attempts, nil
}
