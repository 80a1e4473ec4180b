package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"alert-dispatch-service/internal/models"
)

const messageColumns = `
    id, alert_id, farm_id, channel, subject, body_html, body_text,
    recipients, recipients_cc, recipients_bcc, state, created_at, sent_at,
    attempt_count, last_attempt_at, provider_message_id, error_message`

func scanMessage(row pgx.Row) (models.Message, error) {
	var m models.Message
	err := row.Scan(
		&m.ID, &m.AlertID, &m.FarmID, &m.Channel, &m.Subject, &m.BodyHTML,
		&m.BodyText, &m.Recipients, &m.RecipientsCC, &m.RecipientsBCC,
		&m.State, &m.CreatedAt, &m.SentAt, &m.AttemptCount, &m.LastAttemptAt,
		&m.ProviderMessageID, &m.ErrorMessage,
	)
	return m, err
}

// CreateMessage inserts a new Pending message and returns its id. For
// consolidated messages AlertID is nil and FarmID is set.
func (d *DB) CreateMessage(ctx context.Context, m models.Message) (int64, error) {
	query := `
        INSERT INTO messages (
            alert_id, farm_id, channel, subject, body_html, body_text,
            recipients, recipients_cc, recipients_bcc, state, created_at,
            attempt_count
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'Pending', $10, 0)
        RETURNING id`

	var id int64
	err := d.Pool.QueryRow(ctx, query,
		m.AlertID, m.FarmID, m.Channel, m.Subject, m.BodyHTML, m.BodyText,
		m.Recipients, m.RecipientsCC, m.RecipientsBCC, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create message: %w", err)
	}
	return id, nil
}

// LinkAlerts records the message/alert associations one row at a time.
// The steps of a consolidation deliberately run as separate statements;
// a crash mid-step leaves partial state that the next run tolerates.
func (d *DB) LinkAlerts(ctx context.Context, messageID int64, alertIDs []int64) error {
	query := `
        INSERT INTO message_alerts (message_id, alert_id, created_at)
        VALUES ($1, $2, $3)`
	now := time.Now()
	for _, alertID := range alertIDs {
		if _, err := d.Pool.Exec(ctx, query, messageID, alertID, now); err != nil {
			return fmt.Errorf("failed to link alert %d to message %d: %w", alertID, messageID, err)
		}
	}
	return nil
}

// SelectPending returns Pending messages that have not exhausted their
// attempts, oldest first.
func (d *DB) SelectPending(ctx context.Context, maxAttempts int) ([]models.Message, error) {
	query := `SELECT` + messageColumns + `
        FROM messages
        WHERE state = 'Pending' AND attempt_count < $1
        ORDER BY created_at ASC`

	rows, err := d.Pool.Query(ctx, query, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending messages: %w", err)
	}
	defer rows.Close()

	var list []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// GetMessage returns one message by id.
func (d *DB) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	query := `SELECT` + messageColumns + ` FROM messages WHERE id = $1`
	m, err := scanMessage(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message %d: %w", id, err)
	}
	return &m, nil
}

// ListMessages returns recent messages, newest first.
func (d *DB) ListMessages(ctx context.Context, limit, offset int) ([]models.Message, error) {
	query := `SELECT` + messageColumns + `
        FROM messages
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`

	rows, err := d.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var list []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// MarkSending moves a message to Sending and advances its attempt
// counter before any transport work happens. When requirePending is
// true the update only succeeds if the row is still Pending, which is
// the optimistic claim that keeps overlapping drains off the same row;
// the manual send path passes false and takes the row in any state.
// Returns whether the row was claimed.
func (d *DB) MarkSending(ctx context.Context, id int64, requirePending bool) (bool, error) {
	query := `
        UPDATE messages
        SET state = 'Sending',
            attempt_count = attempt_count + 1,
            last_attempt_at = $2
        WHERE id = $1`
	if requirePending {
		query += ` AND state = 'Pending'`
	}

	tag, err := d.Pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to mark message %d sending: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkSent finalizes a successful delivery.
func (d *DB) MarkSent(ctx context.Context, id int64, providerMessageID string) error {
	query := `
        UPDATE messages
        SET state = 'Sent', sent_at = $2, provider_message_id = $3, error_message = NULL
        WHERE id = $1`
	_, err := d.Pool.Exec(ctx, query, id, time.Now(), providerMessageID)
	if err != nil {
		return fmt.Errorf("failed to mark message %d sent: %w", id, err)
	}
	return nil
}

// MarkError records a delivery failure.
func (d *DB) MarkError(ctx context.Context, id int64, errorMessage string) error {
	query := `
        UPDATE messages
        SET state = 'Error', error_message = $2
        WHERE id = $1`
	_, err := d.Pool.Exec(ctx, query, id, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to mark message %d errored: %w", id, err)
	}
	return nil
}
