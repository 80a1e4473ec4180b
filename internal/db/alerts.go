package db

import (
	"context"
	"fmt"
	"time"

	"alert-dispatch-service/internal/models"
)

// InsertAlert records a new Pending alert. Used by the Kafka ingest
// path; the evaluation pipeline writes alerts the same way.
func (d *DB) InsertAlert(ctx context.Context, a models.Alert) (int64, error) {
	query := `
        INSERT INTO alerts (
            lot_id, evaluation_id, threshold_id, variety_id, light_pct,
            threshold_kind, severity, state, created_at, active
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, 'Pending', $8, true)
        RETURNING id`

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := d.Pool.QueryRow(ctx, query,
		a.LotID, a.EvaluationID, a.ThresholdID, a.VarietyID, a.LightPct,
		a.ThresholdKind, a.Severity, createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert alert: %w", err)
	}
	return id, nil
}

// SelectUnconsolidated returns alerts eligible for consolidation:
// Pending or Sent, still active, not yet attached to a message, created
// since the given time, and with a resolvable farm. Farm identity comes
// from the evaluation when present, otherwise through the alert's lot.
// Ordered by farm id then creation time so grouping is deterministic.
func (d *DB) SelectUnconsolidated(ctx context.Context, since time.Time) ([]models.Alert, error) {
	query := `
        SELECT
            a.id, a.lot_id, a.evaluation_id, a.threshold_id, a.variety_id,
            a.light_pct, a.threshold_kind, a.severity, a.state, a.created_at,
            rtrim(f.id) AS farm_id,
            f.name AS farm_name,
            COALESCE(le.sector_id, l.sector_id) AS sector_id
        FROM alerts a
        LEFT JOIN lot_evaluations le ON a.evaluation_id = le.id
        LEFT JOIN lots l ON a.lot_id = l.id
        LEFT JOIN sectors s ON COALESCE(le.sector_id, l.sector_id) = s.id
        LEFT JOIN farms f ON COALESCE(le.farm_id, s.farm_id) = f.id
        WHERE a.state IN ('Pending', 'Sent')
          AND a.active
          AND a.message_id IS NULL
          AND a.created_at >= $1
          AND f.id IS NOT NULL
        ORDER BY f.id, a.created_at ASC`

	rows, err := d.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to select unconsolidated alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		err := rows.Scan(
			&a.ID, &a.LotID, &a.EvaluationID, &a.ThresholdID, &a.VarietyID,
			&a.LightPct, &a.ThresholdKind, &a.Severity, &a.State, &a.CreatedAt,
			&a.FarmID, &a.FarmName, &a.SectorID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// StampMessageID attaches a message to a set of alerts. The message_id
// IS NULL predicate keeps an overlapping run from re-stamping alerts a
// concurrent consolidation already claimed.
func (d *DB) StampMessageID(ctx context.Context, alertIDs []int64, messageID int64) error {
	query := `
        UPDATE alerts
        SET message_id = $1
        WHERE id = ANY($2) AND message_id IS NULL`
	_, err := d.Pool.Exec(ctx, query, messageID, alertIDs)
	if err != nil {
		return fmt.Errorf("failed to stamp message_id on alerts: %w", err)
	}
	return nil
}

// CascadeAlertsSent marks every alert linked to the message as Sent.
// Resolved and Ignored alerts are left alone.
func (d *DB) CascadeAlertsSent(ctx context.Context, messageID int64) error {
	query := `
        UPDATE alerts a
        SET state = 'Sent', sent_at = $2
        FROM message_alerts ma
        WHERE ma.alert_id = a.id
          AND ma.message_id = $1
          AND a.state IN ('Pending', 'Sent')`
	_, err := d.Pool.Exec(ctx, query, messageID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to cascade sent state to alerts: %w", err)
	}
	return nil
}

// GetThresholdInfo returns the description of an active light threshold.
func (d *DB) GetThresholdInfo(ctx context.Context, thresholdID int64) (*models.ThresholdInfo, error) {
	query := `
        SELECT id, description, COALESCE(color_hex, '')
        FROM light_thresholds
        WHERE id = $1 AND active`

	var info models.ThresholdInfo
	err := d.Pool.QueryRow(ctx, query, thresholdID).Scan(&info.ID, &info.Description, &info.ColorHex)
	if err != nil {
		return nil, fmt.Errorf("failed to get threshold %d: %w", thresholdID, err)
	}
	return &info, nil
}
