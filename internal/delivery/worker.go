// Package delivery drains Pending messages through the mail transport.
// A message is claimed (Sending, attempt counter advanced) before the
// transport is called, so a crash mid-send cannot retry forever without
// the counter moving.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"alert-dispatch-service/internal/logging"
	"alert-dispatch-service/internal/mailer"
	"alert-dispatch-service/internal/models"
)

// ErrInvalidMessageID is returned for a non-positive message id.
var ErrInvalidMessageID = errors.New("message id must be positive")

// MessageStore is the message-side store surface the worker needs.
type MessageStore interface {
	SelectPending(ctx context.Context, maxAttempts int) ([]models.Message, error)
	GetMessage(ctx context.Context, id int64) (*models.Message, error)
	MarkSending(ctx context.Context, id int64, requirePending bool) (bool, error)
	MarkSent(ctx context.Context, id int64, providerMessageID string) error
	MarkError(ctx context.Context, id int64, errorMessage string) error
	CascadeAlertsSent(ctx context.Context, messageID int64) error
}

// StateEvent describes a message state change for observers.
type StateEvent struct {
	MessageID int64  `json:"message_id"`
	FarmID    string `json:"farm_id,omitempty"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
}

// EventSink receives state changes. The websocket hub implements it;
// a nil sink disables publishing.
type EventSink interface {
	Publish(ev StateEvent)
}

type Worker struct {
	messages    MessageStore
	transport   mailer.Transport
	fromEmail   string
	fromName    string
	maxAttempts int
	events      EventSink
	logger      *logging.Logger
}

func NewWorker(messages MessageStore, transport mailer.Transport, fromEmail, fromName string, maxAttempts int, events EventSink, logger *logging.Logger) *Worker {
	return &Worker{
		messages:    messages,
		transport:   transport,
		fromEmail:   fromEmail,
		fromName:    fromName,
		maxAttempts: maxAttempts,
		events:      events,
		logger:      logger,
	}
}

// DrainPending processes every Pending message still under the attempt
// cap, oldest first. One message's failure never aborts the batch.
func (w *Worker) DrainPending(ctx context.Context) (succeeded, failed int, err error) {
	pending, err := w.messages.SelectPending(ctx, w.maxAttempts)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to select pending messages: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	w.logger.Infof("processing %d pending message(s)", len(pending))
	for _, m := range pending {
		claimed, err := w.messages.MarkSending(ctx, m.ID, true)
		if err != nil {
			w.logger.Errorf("failed to claim message %d: %v", m.ID, err)
			failed++
			continue
		}
		if !claimed {
			// Another overlapping run took this row first.
			w.logger.Infof("message %d no longer Pending, skipping", m.ID)
			continue
		}

		if w.deliver(ctx, m) {
			succeeded++
		} else {
			failed++
		}
	}

	w.logger.Infof("drain finished: %d succeeded, %d failed", succeeded, failed)
	return succeeded, failed, nil
}

// SendOne delivers a single message by id, ignoring the attempt cap.
// This is the operator's override for exhausted or errored messages.
func (w *Worker) SendOne(ctx context.Context, messageID int64) (bool, error) {
	if messageID <= 0 {
		return false, ErrInvalidMessageID
	}

	m, err := w.messages.GetMessage(ctx, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to load message %d: %w", messageID, err)
	}

	if _, err := w.messages.MarkSending(ctx, m.ID, false); err != nil {
		return false, fmt.Errorf("failed to claim message %d: %w", m.ID, err)
	}
	return w.deliver(ctx, *m), nil
}

// deliver runs one transport attempt for an already-claimed message and
// records the outcome. Returns whether delivery succeeded.
func (w *Worker) deliver(ctx context.Context, m models.Message) bool {
	to, err := models.DecodeRecipients(&m.Recipients)
	if err == nil && len(to) == 0 {
		err = errors.New("empty recipient list")
	}
	if err != nil {
		w.fail(ctx, m, fmt.Sprintf("unparseable recipients: %v", err))
		return false
	}
	cc, err := models.DecodeRecipients(m.RecipientsCC)
	if err != nil {
		w.fail(ctx, m, fmt.Sprintf("unparseable cc list: %v", err))
		return false
	}
	bcc, err := models.DecodeRecipients(m.RecipientsBCC)
	if err != nil {
		w.fail(ctx, m, fmt.Sprintf("unparseable bcc list: %v", err))
		return false
	}

	providerID, err := w.transport.Send(ctx, mailer.Mail{
		FromEmail: w.fromEmail,
		FromName:  w.fromName,
		To:        to,
		CC:        cc,
		BCC:       bcc,
		Subject:   m.Subject,
		HTML:      m.BodyHTML,
		Text:      m.BodyText,
	})
	if err != nil {
		w.fail(ctx, m, err.Error())
		return false
	}

	if err := w.messages.MarkSent(ctx, m.ID, providerID); err != nil {
		w.logger.Errorf("message %d delivered but state update failed: %v", m.ID, err)
	}
	if err := w.messages.CascadeAlertsSent(ctx, m.ID); err != nil {
		w.logger.Errorf("failed to cascade sent state for message %d: %v", m.ID, err)
	}
	w.publish(m, string(models.MessageSent), "")
	w.logger.Infof("message %d sent (provider id %s)", m.ID, providerID)
	return true
}

func (w *Worker) fail(ctx context.Context, m models.Message, reason string) {
	if err := w.messages.MarkError(ctx, m.ID, reason); err != nil {
		w.logger.Errorf("failed to record error for message %d: %v", m.ID, err)
	}
	w.publish(m, string(models.MessageError), reason)
	w.logger.Errorf("message %d failed: %s", m.ID, reason)
}

func (w *Worker) publish(m models.Message, state, errText string) {
	if w.events == nil {
		return
	}
	ev := StateEvent{MessageID: m.ID, State: state, Error: errText}
	if m.FarmID != nil {
		ev.FarmID = *m.FarmID
	}
	w.events.Publish(ev)
}
