package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jparkhurst/crewcall/pkg/db"
)

// ReplaceCallCardPush inserts a push for a call sheet, replacing any prior one.
// At most one active push per call sheet.
func (d *DB) ReplaceCallCardPush(ctx context.Context, push *db.CallCardPush) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO call_card_push (id, call_sheet_id, hours, minutes, notify, document_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (call_sheet_id) DO UPDATE SET
			id = EXCLUDED.id,
			hours = EXCLUDED.hours,
			minutes = EXCLUDED.minutes,
			notify = EXCLUDED.notify,
			document_ref = EXCLUDED.document_ref,
			created_at = NOW()
	`, push.ID, push.CallSheetID, push.Hours, push.Minutes, push.Notify, push.DocumentRef)
	if err != nil {
		return fmt.Errorf("failed to replace call card push: %w", err)
	}
	return nil
}

// GetActiveCallCardPush retrieves the current push for a call sheet
func (d *DB) GetActiveCallCardPush(ctx context.Context, callSheetID string) (*db.CallCardPush, error) {
	var p db.CallCardPush
	err := d.pool.QueryRow(ctx, `
		SELECT id, call_sheet_id, hours, minutes, notify, document_ref, created_at
		FROM call_card_push
		WHERE call_sheet_id = $1
	`, callSheetID).Scan(&p.ID, &p.CallSheetID, &p.Hours, &p.Minutes, &p.Notify, &p.DocumentRef, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("call card push for sheet %s: %w", callSheetID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query call card push: %w", err)
	}
	return &p, nil
}

// GetCallCardRecipients retrieves all recipients on a call sheet
func (d *DB) GetCallCardRecipients(ctx context.Context, callSheetID string) ([]db.CallCardRecipient, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, call_sheet_id, member_id, name, phone, email, call_time, delivery_status, status_updated_at
		FROM call_card_recipient
		WHERE call_sheet_id = $1
		ORDER BY name ASC
	`, callSheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query call card recipients: %w", err)
	}
	defer rows.Close()

	var recipients []db.CallCardRecipient
	for rows.Next() {
		var r db.CallCardRecipient
		if err := rows.Scan(&r.ID, &r.CallSheetID, &r.MemberID, &r.Name, &r.Phone, &r.Email, &r.CallTime, &r.DeliveryStatus, &r.StatusUpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan call card recipient: %w", err)
		}
		recipients = append(recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating call card recipients: %w", err)
	}
	return recipients, nil
}

// UpdateRecipientDeliveryStatus sets a recipient's delivery status and
// timestamp
func (d *DB) UpdateRecipientDeliveryStatus(ctx context.Context, recipientID, status string, at time.Time) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE call_card_recipient
		SET delivery_status = $2, status_updated_at = $3
		WHERE id = $1
	`, recipientID, status, at)
	if err != nil {
		return fmt.Errorf("failed to update recipient delivery status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("call card recipient %s: %w", recipientID, db.ErrNotFound)
	}
	return nil
}

// ResetRecipientDeliveryStatuses rolls every recipient on a call sheet back to
// pending. The retraction path of the push coordinator; idempotent.
func (d *DB) ResetRecipientDeliveryStatuses(ctx context.Context, callSheetID string) error {
	_, err := d.pool.Exec(ctx, `
		UPDATE call_card_recipient
		SET delivery_status = 'pending', status_updated_at = NOW()
		WHERE call_sheet_id = $1
	`, callSheetID)
	if err != nil {
		return fmt.Errorf("failed to reset recipient delivery statuses: %w", err)
	}
	return nil
}
