package models

import (
	"strings"
	"time"
)

// Contact is a directory entry describing who receives alert mail.
// FarmID and SectorID restrict which alerts the contact is interested
// in; nil means unrestricted.
type Contact struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         *string    `json:"phone,omitempty"`
	Role          *string    `json:"role,omitempty"`
	WantsCritical bool       `json:"wants_critical"`
	WantsAdvisory bool       `json:"wants_advisory"`
	WantsNormal   bool       `json:"wants_normal"`
	FarmID        *string    `json:"farm_id,omitempty"`
	SectorID      *int64     `json:"sector_id,omitempty"`
	Priority      int        `json:"priority"`
	Active        bool       `json:"active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// LotInfo is the grower-hierarchy detail for one lot: its sector, farm
// and currently planted variety.
type LotInfo struct {
	LotID       int64   `json:"lot_id"`
	LotName     string  `json:"lot_name"`
	SectorID    int64   `json:"sector_id"`
	SectorName  string  `json:"sector_name"`
	FarmID      string  `json:"farm_id"`
	FarmName    string  `json:"farm_name"`
	VarietyName *string `json:"variety_name,omitempty"`
}

// TrimFarmID normalizes a fixed-width CHAR(4) farm identifier for
// comparison. Farm ids are right-padded in the store.
func TrimFarmID(id string) string {
	return strings.TrimRight(id, " ")
}
