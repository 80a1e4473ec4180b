package models

import "time"

// ThresholdKind classifies a measured light percentage against the
// configured thresholds.
type ThresholdKind string

const (
	ThresholdCriticalRed    ThresholdKind = "CriticalRed"
	ThresholdCriticalYellow ThresholdKind = "CriticalYellow"
	ThresholdNormal         ThresholdKind = "Normal"
)

// Valid reports whether k is one of the known threshold kinds.
func (k ThresholdKind) Valid() bool {
	switch k {
	case ThresholdCriticalRed, ThresholdCriticalYellow, ThresholdNormal:
		return true
	}
	return false
}

// AlertState is the lifecycle state of an alert. Resolve/Ignore
// transitions belong to the management UI, never to this service.
type AlertState string

const (
	AlertPending  AlertState = "Pending"
	AlertSent     AlertState = "Sent"
	AlertResolved AlertState = "Resolved"
	AlertIgnored  AlertState = "Ignored"
)

// Alert is a single threshold violation recorded for a lot evaluation.
type Alert struct {
	ID            int64         `json:"id"`
	LotID         int64         `json:"lot_id"`
	EvaluationID  *int64        `json:"evaluation_id,omitempty"`
	ThresholdID   int64         `json:"threshold_id"`
	VarietyID     *int64        `json:"variety_id,omitempty"`
	LightPct      float64       `json:"light_pct"`
	ThresholdKind ThresholdKind `json:"threshold_kind"`
	Severity      string        `json:"severity"`
	State         AlertState    `json:"state"`
	CreatedAt     time.Time     `json:"created_at"`
	SentAt        *time.Time    `json:"sent_at,omitempty"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
	MessageID     *int64        `json:"message_id,omitempty"`

	// Farm identity joined in by the consolidation query. FarmID is
	// already trimmed; SectorID may be nil when neither the evaluation
	// nor the lot resolves a sector.
	FarmID   string `json:"farm_id,omitempty"`
	FarmName string `json:"farm_name,omitempty"`
	SectorID *int64 `json:"sector_id,omitempty"`
}

// ThresholdInfo is the human description of a configured light threshold.
type ThresholdInfo struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	ColorHex    string `json:"color_hex,omitempty"`
}
