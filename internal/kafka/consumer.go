// Package kafka ingests threshold-violation events produced by the
// external evaluation pipeline and records them as Pending alerts.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"alert-dispatch-service/internal/logging"
	"alert-dispatch-service/internal/models"
)

// AlertWriter persists ingested alerts.
type AlertWriter interface {
	InsertAlert(ctx context.Context, a models.Alert) (int64, error)
}

// alertEvent is the wire format of one threshold violation.
type alertEvent struct {
	LotID         int64   `json:"lot_id"`
	EvaluationID  *int64  `json:"evaluation_id"`
	ThresholdID   int64   `json:"threshold_id"`
	VarietyID     *int64  `json:"variety_id"`
	LightPct      float64 `json:"light_pct"`
	ThresholdKind string  `json:"threshold_kind"`
	Severity      string  `json:"severity"`
	EvaluatedAt   string  `json:"evaluated_at"`
}

type Consumer struct {
	reader *kafka.Reader
	writer AlertWriter
	logger *logging.Logger
}

func NewConsumer(brokers []string, topic, groupID string, writer AlertWriter, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
	return &Consumer{reader: reader, writer: writer, logger: logger}
}

// Start consumes until the context is cancelled. Malformed events are
// logged and skipped; they are not retried.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Infof("kafka consumer started on topic %s", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Infof("kafka consumer stopped")
				return
			}
			c.logger.Errorf("kafka read failed: %v", err)
			continue
		}

		var ev alertEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.logger.Errorf("unmarshal alert event failed: %v", err)
			continue
		}

		kind := models.ThresholdKind(ev.ThresholdKind)
		if ev.LotID <= 0 || ev.ThresholdID <= 0 || !kind.Valid() {
			c.logger.Errorf("invalid alert event: lot_id=%d threshold_id=%d kind=%q", ev.LotID, ev.ThresholdID, ev.ThresholdKind)
			continue
		}

		createdAt := time.Now()
		if ev.EvaluatedAt != "" {
			if t, err := time.Parse(time.RFC3339, ev.EvaluatedAt); err == nil {
				createdAt = t
			}
		}

		id, err := c.writer.InsertAlert(ctx, models.Alert{
			LotID:         ev.LotID,
			EvaluationID:  ev.EvaluationID,
			ThresholdID:   ev.ThresholdID,
			VarietyID:     ev.VarietyID,
			LightPct:      ev.LightPct,
			ThresholdKind: kind,
			Severity:      ev.Severity,
			CreatedAt:     createdAt,
		})
		if err != nil {
			c.logger.Errorf("failed to persist alert for lot %d: %v", ev.LotID, err)
			continue
		}
		c.logger.Infof("ingested alert %d for lot %d (%s)", id, ev.LotID, kind)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
