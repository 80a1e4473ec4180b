package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alert-dispatch-service/internal/models"
)

// GetLotInfo resolves a lot's sector, farm and currently planted
// variety. Returns ErrNotFound when the lot is missing or inactive.
func (d *DB) GetLotInfo(ctx context.Context, lotID int64) (*models.LotInfo, error) {
	query := `
        SELECT
            l.id, l.name, s.id, s.name, rtrim(f.id), f.name, v.name
        FROM lots l
        INNER JOIN sectors s ON l.sector_id = s.id
        INNER JOIN farms f ON s.farm_id = f.id
        LEFT JOIN plantations p ON p.lot_id = l.id AND p.active
        LEFT JOIN varieties v ON p.variety_id = v.id AND v.active
        WHERE l.id = $1 AND l.active`

	var info models.LotInfo
	err := d.Pool.QueryRow(ctx, query, lotID).Scan(
		&info.LotID, &info.LotName, &info.SectorID, &info.SectorName,
		&info.FarmID, &info.FarmName, &info.VarietyName,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lot %d: %w", lotID, err)
	}
	return &info, nil
}

// GetFarmName returns the display name for a farm id, trimming the
// fixed-width identifier before comparison.
func (d *DB) GetFarmName(ctx context.Context, farmID string) (string, error) {
	query := `SELECT name FROM farms WHERE rtrim(id) = $1`

	var name string
	err := d.Pool.QueryRow(ctx, query, models.TrimFarmID(farmID)).Scan(&name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get farm %q: %w", farmID, err)
	}
	return name, nil
}
