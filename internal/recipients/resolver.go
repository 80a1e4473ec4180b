// Package recipients resolves who receives a message. The directory is
// authoritative; a static configured list is the fallback of last
// resort. Resolution never fails outright: directory errors and lookup
// misses degrade the filtering instead of suppressing delivery.
package recipients

import (
	"context"

	"alert-dispatch-service/internal/db"
	"alert-dispatch-service/internal/logging"
	"alert-dispatch-service/internal/models"
)

// Directory is the contact store consumed by the resolver.
type Directory interface {
	FindRecipients(ctx context.Context, f db.ContactFilter) ([]models.Contact, error)
}

// LotLookup resolves a lot's farm and sector when the caller has none.
type LotLookup interface {
	GetLotInfo(ctx context.Context, lotID int64) (*models.LotInfo, error)
}

type Resolver struct {
	dir      Directory
	lots     LotLookup
	fallback []string
	logger   *logging.Logger
}

func New(dir Directory, lots LotLookup, fallback []string, logger *logging.Logger) *Resolver {
	return &Resolver{dir: dir, lots: lots, fallback: fallback, logger: logger}
}

// Resolve returns the ordered, deduplicated recipient list for an alert
// of the given threshold kind. When farmID/sectorID are absent they are
// derived from the lot; a failed lookup degrades to unscoped filtering.
// Zero directory matches fall back to the static list, which may itself
// be empty.
func (r *Resolver) Resolve(ctx context.Context, kind models.ThresholdKind, lotID *int64, farmID *string, sectorID *int64) []string {
	if farmID == nil && lotID != nil {
		info, err := r.lots.GetLotInfo(ctx, *lotID)
		if err != nil {
			r.logger.Warnf("lot %d lookup failed, resolving recipients without farm/sector scope: %v", *lotID, err)
		} else {
			farmID = &info.FarmID
			if sectorID == nil {
				sectorID = &info.SectorID
			}
		}
	}

	contacts, err := r.dir.FindRecipients(ctx, db.ContactFilter{
		Kind:     kind,
		FarmID:   farmID,
		SectorID: sectorID,
	})
	if err != nil {
		r.logger.Errorf("contact directory query failed, using fallback recipients: %v", err)
		return append([]string(nil), r.fallback...)
	}

	emails := dedupe(contacts)
	if len(emails) == 0 {
		if len(r.fallback) > 0 {
			r.logger.Warnf("no contacts matched kind=%s, using %d fallback recipient(s)", kind, len(r.fallback))
			return append([]string(nil), r.fallback...)
		}
		return nil
	}
	return emails
}

// dedupe keeps the first occurrence of each address, preserving the
// directory's priority ordering.
func dedupe(contacts []models.Contact) []string {
	seen := make(map[string]bool, len(contacts))
	var emails []string
	for _, c := range contacts {
		if c.Email == "" || seen[c.Email] {
			continue
		}
		seen[c.Email] = true
		emails = append(emails, c.Email)
	}
	return emails
}
