package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jparkhurst/crewcall/pkg/db"
)

// GetPosition retrieves a single position by ID
func (d *DB) GetPosition(ctx context.Context, positionID string) (*db.Position, error) {
	var pos db.Position
	err := d.pool.QueryRow(ctx, `
		SELECT id, project_id, title, required_quantity, hiring_status, created_at
		FROM position
		WHERE id = $1
	`, positionID).Scan(&pos.ID, &pos.ProjectID, &pos.Title, &pos.RequiredQuantity, &pos.HiringStatus, &pos.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("position %s: %w", positionID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}
	return &pos, nil
}

// SetPositionHiringStatus transitions a position's hiring status
func (d *DB) SetPositionHiringStatus(ctx context.Context, positionID string, status db.HiringStatus) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE position SET hiring_status = $2 WHERE id = $1
	`, positionID, status)
	if err != nil {
		return fmt.Errorf("failed to update hiring status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("position %s: %w", positionID, db.ErrNotFound)
	}
	return nil
}

// GetCandidatesByPosition retrieves all candidates for a position in ascending
// priority order (lower priority is contacted first)
func (d *DB) GetCandidatesByPosition(ctx context.Context, positionID string) ([]db.Candidate, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, position_id, member_id, name, phone, email, priority, created_at
		FROM candidate
		WHERE position_id = $1
		ORDER BY priority ASC
	`, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []db.Candidate
	for rows.Next() {
		var c db.Candidate
		if err := rows.Scan(&c.ID, &c.PositionID, &c.MemberID, &c.Name, &c.Phone, &c.Email, &c.Priority, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return candidates, nil
}

// GetCandidate retrieves a single candidate by ID
func (d *DB) GetCandidate(ctx context.Context, candidateID string) (*db.Candidate, error) {
	var c db.Candidate
	err := d.pool.QueryRow(ctx, `
		SELECT id, position_id, member_id, name, phone, email, priority, created_at
		FROM candidate
		WHERE id = $1
	`, candidateID).Scan(&c.ID, &c.PositionID, &c.MemberID, &c.Name, &c.Phone, &c.Email, &c.Priority, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("candidate %s: %w", candidateID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate: %w", err)
	}
	return &c, nil
}

// UpdateCandidatePriority changes a candidate's position in the queue
func (d *DB) UpdateCandidatePriority(ctx context.Context, candidateID string, priority int) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE candidate SET priority = $2 WHERE id = $1
	`, candidateID, priority)
	if err != nil {
		return fmt.Errorf("failed to update candidate priority: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("candidate %s: %w", candidateID, db.ErrNotFound)
	}
	return nil
}
