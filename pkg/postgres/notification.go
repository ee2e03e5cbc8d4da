package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jparkhurst/crewcall/pkg/db"
)

// nullableUUID maps an empty string to SQL NULL for optional uuid columns
func nullableUUID(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// InsertOutboundMessage records a successful send tied to a contact attempt
func (d *DB) InsertOutboundMessage(ctx context.Context, msg *db.OutboundMessage) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO outbound_message (id, attempt_id, channel, provider_id, recipient, body)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.AttemptID, msg.Channel, msg.ProviderID, msg.Recipient, msg.Body)
	if err != nil {
		return fmt.Errorf("failed to insert outbound message: %w", err)
	}
	return nil
}

// GetLatestOutboundMessage retrieves the most recent message sent to a
// recipient address. Used to correlate inbound replies; most recent wins.
func (d *DB) GetLatestOutboundMessage(ctx context.Context, recipient string) (*db.OutboundMessage, error) {
	var msg db.OutboundMessage
	err := d.pool.QueryRow(ctx, `
		SELECT id, attempt_id, channel, provider_id, recipient, body, created_at
		FROM outbound_message
		WHERE recipient = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, recipient).Scan(&msg.ID, &msg.AttemptID, &msg.Channel, &msg.ProviderID, &msg.Recipient, &msg.Body, &msg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("outbound message for %s: %w", recipient, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query outbound message: %w", err)
	}
	return &msg, nil
}

// InsertNotificationRecord appends a communication event to the log
func (d *DB) InsertNotificationRecord(ctx context.Context, rec *db.NotificationRecord) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO notification_record (id, type, recipient, call_sheet_id, member_id, company_id, body)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.Type, rec.Recipient,
		nullableUUID(rec.CallSheetID), nullableUUID(rec.MemberID), nullableUUID(rec.CompanyID), rec.Body)
	if err != nil {
		return fmt.Errorf("failed to insert notification record: %w", err)
	}
	return nil
}

// HasNotificationRecord reports whether a record of any of the given types
// exists for a recipient address. Drives first-contact detection.
func (d *DB) HasNotificationRecord(ctx context.Context, recipient string, recordTypes ...string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification_record WHERE recipient = $1 AND type = ANY($2)
		)
	`, recipient, recordTypes).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification records: %w", err)
	}
	return exists, nil
}

// ListNotificationRecords retrieves the most recent records for a company's
// activity feed
func (d *DB) ListNotificationRecords(ctx context.Context, companyID string, limit int) ([]db.NotificationRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, type, recipient,
		       COALESCE(call_sheet_id::text, ''), COALESCE(member_id::text, ''), COALESCE(company_id::text, ''),
		       body, read, created_at
		FROM notification_record
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification records: %w", err)
	}
	defer rows.Close()

	var records []db.NotificationRecord
	for rows.Next() {
		var r db.NotificationRecord
		if err := rows.Scan(&r.ID, &r.Type, &r.Recipient, &r.CallSheetID, &r.MemberID, &r.CompanyID, &r.Body, &r.Read, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification records: %w", err)
	}
	return records, nil
}

// MarkNotificationRead flips the read flag on a feed record. The only
// permitted mutation of a notification record.
func (d *DB) MarkNotificationRead(ctx context.Context, recordID string) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE notification_record SET read = TRUE WHERE id = $1
	`, recordID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification record %s: %w", recordID, db.ErrNotFound)
	}
	return nil
}
