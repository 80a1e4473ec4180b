// Package consolidator turns un-consolidated alerts into one digest
// message per farm. A group's failure never blocks the other farms; only
// a failure of the initial fetch aborts the run.
package consolidator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alert-dispatch-service/internal/content"
	"alert-dispatch-service/internal/logging"
	"alert-dispatch-service/internal/models"
)

// ErrInvalidLookback is returned for a negative lookback window.
var ErrInvalidLookback = errors.New("lookback hours must not be negative")

// DefaultLookbackHours is used when the caller passes zero.
const DefaultLookbackHours = 24

// AlertStore is the alert-side store surface the consolidator needs.
type AlertStore interface {
	SelectUnconsolidated(ctx context.Context, since time.Time) ([]models.Alert, error)
	StampMessageID(ctx context.Context, alertIDs []int64, messageID int64) error
}

// MessageStore creates messages and their alert links.
type MessageStore interface {
	CreateMessage(ctx context.Context, m models.Message) (int64, error)
	LinkAlerts(ctx context.Context, messageID int64, alertIDs []int64) error
}

// DetailStore resolves per-alert lot and threshold context.
type DetailStore interface {
	GetLotInfo(ctx context.Context, lotID int64) (*models.LotInfo, error)
	GetThresholdInfo(ctx context.Context, thresholdID int64) (*models.ThresholdInfo, error)
}

// RecipientResolver yields the ordered unique recipient list for a farm
// group. An empty result means the group is skipped.
type RecipientResolver interface {
	Resolve(ctx context.Context, kind models.ThresholdKind, lotID *int64, farmID *string, sectorID *int64) []string
}

type Consolidator struct {
	alerts   AlertStore
	messages MessageStore
	details  DetailStore
	resolver RecipientResolver
	logger   *logging.Logger
}

func New(alerts AlertStore, messages MessageStore, details DetailStore, resolver RecipientResolver, logger *logging.Logger) *Consolidator {
	return &Consolidator{
		alerts:   alerts,
		messages: messages,
		details:  details,
		resolver: resolver,
		logger:   logger,
	}
}

// farmGroup is one farm's slice of the selection, in creation order.
type farmGroup struct {
	farmID   string
	farmName string
	alerts   []models.Alert
}

// Consolidate selects alerts created within the lookback window, groups
// them by trimmed farm id, and creates one Pending message per farm
// that resolves at least one recipient. Returns the number of messages
// created.
func (c *Consolidator) Consolidate(ctx context.Context, lookbackHours int) (int, error) {
	if lookbackHours < 0 {
		return 0, ErrInvalidLookback
	}
	if lookbackHours == 0 {
		lookbackHours = DefaultLookbackHours
	}

	since := time.Now().Add(-time.Duration(lookbackHours) * time.Hour)
	alerts, err := c.alerts.SelectUnconsolidated(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch alerts for consolidation: %w", err)
	}
	if len(alerts) == 0 {
		c.logger.Infof("no pending alerts to consolidate in the last %dh", lookbackHours)
		return 0, nil
	}

	groups := groupByFarm(alerts)
	c.logger.Infof("consolidating %d alert(s) across %d farm(s)", len(alerts), len(groups))

	created := 0
	for _, g := range groups {
		if err := c.consolidateFarm(ctx, g); err != nil {
			if !errors.Is(err, errNoRecipients) {
				c.logger.Errorf("failed to consolidate farm %s: %v", g.farmID, err)
			}
			continue
		}
		created++
	}

	c.logger.Infof("consolidation finished: %d message(s) created", created)
	return created, nil
}

// errNoRecipients marks a group skipped for lack of recipients; its
// alerts stay eligible for a future run.
var errNoRecipients = errors.New("no recipients resolved")

func (c *Consolidator) consolidateFarm(ctx context.Context, g farmGroup) error {
	details := make([]content.AlertDetail, 0, len(g.alerts))
	for _, a := range g.alerts {
		d := content.AlertDetail{Alert: a}
		if info, err := c.details.GetLotInfo(ctx, a.LotID); err != nil {
			c.logger.Warnf("lot %d lookup failed for alert %d: %v", a.LotID, a.ID, err)
		} else {
			d.Lot = info
		}
		if info, err := c.details.GetThresholdInfo(ctx, a.ThresholdID); err != nil {
			c.logger.Warnf("threshold %d lookup failed for alert %d: %v", a.ThresholdID, a.ID, err)
		} else {
			d.Threshold = info
		}
		details = append(details, d)
	}

	// The most severe member decides which contacts the group reaches.
	kind := models.ThresholdCriticalYellow
	for _, d := range details {
		if d.Alert.ThresholdKind == models.ThresholdCriticalRed {
			kind = models.ThresholdCriticalRed
			break
		}
	}

	first := g.alerts[0]
	farmID := models.TrimFarmID(g.farmID)
	recipients := c.resolver.Resolve(ctx, kind, &first.LotID, &farmID, first.SectorID)
	if len(recipients) == 0 {
		c.logger.Warnf("farm %s resolved zero recipients, skipping %d alert(s)", farmID, len(g.alerts))
		return errNoRecipients
	}

	rendered := content.BuildConsolidated(g.farmName, details)
	encoded, err := models.EncodeRecipients(recipients)
	if err != nil {
		return fmt.Errorf("failed to encode recipients: %w", err)
	}

	messageID, err := c.messages.CreateMessage(ctx, models.Message{
		FarmID:     &farmID,
		Channel:    models.ChannelEmail,
		Subject:    rendered.Subject,
		BodyHTML:   rendered.HTML,
		BodyText:   rendered.Text,
		Recipients: encoded,
		State:      models.MessagePending,
	})
	if err != nil {
		return fmt.Errorf("failed to create consolidated message: %w", err)
	}

	alertIDs := make([]int64, len(g.alerts))
	for i, a := range g.alerts {
		alertIDs[i] = a.ID
	}
	if err := c.messages.LinkAlerts(ctx, messageID, alertIDs); err != nil {
		return fmt.Errorf("failed to link alerts to message %d: %w", messageID, err)
	}
	if err := c.alerts.StampMessageID(ctx, alertIDs, messageID); err != nil {
		return fmt.Errorf("failed to stamp message %d on alerts: %w", messageID, err)
	}

	c.logger.Infof("created consolidated message %d for farm %s covering %d alert(s)", messageID, farmID, len(g.alerts))
	return nil
}

// groupByFarm buckets alerts by trimmed farm id, preserving the
// selection order (farm id, then creation time) for deterministic
// grouping and rendering.
func groupByFarm(alerts []models.Alert) []farmGroup {
	index := make(map[string]int)
	var groups []farmGroup
	for _, a := range alerts {
		key := models.TrimFarmID(a.FarmID)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, farmGroup{farmID: key, farmName: a.FarmName})
		}
		groups[i].alerts = append(groups[i].alerts, a)
	}
	return groups
}
