package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"alert-dispatch-service/internal/models"
)

// ContactFilter narrows the directory query for recipient resolution.
// Kind selects the severity opt-in flag; FarmID and SectorID, when set,
// keep contacts that are unrestricted or scoped to the same farm/sector.
type ContactFilter struct {
	Kind     models.ThresholdKind
	FarmID   *string
	SectorID *int64
}

const contactColumns = `
    id, name, email, phone, role, wants_critical, wants_advisory,
    wants_normal, farm_id, sector_id, priority, active, created_at, updated_at`

func scanContact(row pgx.Row) (models.Contact, error) {
	var c models.Contact
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Role, &c.WantsCritical,
		&c.WantsAdvisory, &c.WantsNormal, &c.FarmID, &c.SectorID,
		&c.Priority, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// FindRecipients returns active contacts opted in to the given
// threshold kind and matching the farm/sector scope, ordered by
// priority descending then name. Farm ids are CHAR(4) so the comparison
// trims the stored value.
func (d *DB) FindRecipients(ctx context.Context, f ContactFilter) ([]models.Contact, error) {
	query := `SELECT` + contactColumns + `
        FROM contacts
        WHERE active`

	switch f.Kind {
	case models.ThresholdCriticalRed:
		query += ` AND wants_critical`
	case models.ThresholdCriticalYellow:
		query += ` AND wants_advisory`
	case models.ThresholdNormal:
		query += ` AND wants_normal`
	default:
		return nil, fmt.Errorf("unknown threshold kind %q", f.Kind)
	}

	args := []interface{}{}
	if f.FarmID != nil && models.TrimFarmID(*f.FarmID) != "" {
		args = append(args, models.TrimFarmID(*f.FarmID))
		query += fmt.Sprintf(` AND (farm_id IS NULL OR rtrim(farm_id) = $%d)`, len(args))
	}
	if f.SectorID != nil {
		args = append(args, *f.SectorID)
		query += fmt.Sprintf(` AND (sector_id IS NULL OR sector_id = $%d)`, len(args))
	}
	query += ` ORDER BY priority DESC, name ASC`

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipients: %w", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// ListContacts returns directory entries, optionally including inactive
// ones, ordered the same way the resolver orders recipients.
func (d *DB) ListContacts(ctx context.Context, includeInactive bool) ([]models.Contact, error) {
	query := `SELECT` + contactColumns + ` FROM contacts`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY priority DESC, name ASC`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// CreateContact inserts a directory entry and returns it with its id.
func (d *DB) CreateContact(ctx context.Context, c models.Contact) (models.Contact, error) {
	query := `
        INSERT INTO contacts (
            name, email, phone, role, wants_critical, wants_advisory,
            wants_normal, farm_id, sector_id, priority, active, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
        RETURNING id, created_at`

	err := d.Pool.QueryRow(ctx, query,
		c.Name, c.Email, c.Phone, c.Role, c.WantsCritical, c.WantsAdvisory,
		c.WantsNormal, c.FarmID, c.SectorID, c.Priority, c.Active,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return models.Contact{}, fmt.Errorf("failed to create contact: %w", err)
	}
	return c, nil
}

// UpdateContact updates every mutable field of a directory entry.
func (d *DB) UpdateContact(ctx context.Context, c models.Contact) error {
	query := `
        UPDATE contacts
        SET name = $2, email = $3, phone = $4, role = $5,
            wants_critical = $6, wants_advisory = $7, wants_normal = $8,
            farm_id = $9, sector_id = $10, priority = $11, active = $12,
            updated_at = NOW()
        WHERE id = $1`

	tag, err := d.Pool.Exec(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.Role, c.WantsCritical,
		c.WantsAdvisory, c.WantsNormal, c.FarmID, c.SectorID, c.Priority,
		c.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact %d: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteContact deactivates a directory entry (soft delete).
func (d *DB) DeleteContact(ctx context.Context, id int64) error {
	query := `UPDATE contacts SET active = false, updated_at = NOW() WHERE id = $1`
	tag, err := d.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
