package models

import (
	"encoding/json"
	"time"
)

// MessageState is the delivery state machine of an outbound message.
// Pending -> Sending -> Sent on success, Sending -> Error on failure.
// Error is terminal for automatic processing.
type MessageState string

const (
	MessagePending MessageState = "Pending"
	MessageSending MessageState = "Sending"
	MessageSent    MessageState = "Sent"
	MessageError   MessageState = "Error"
)

// Message is an outbound email, either for a single alert or
// consolidated for every alert of one farm. Recipient lists are stored
// as JSON arrays to keep their order.
type Message struct {
	ID                int64        `json:"id"`
	AlertID           *int64       `json:"alert_id,omitempty"`
	FarmID            *string      `json:"farm_id,omitempty"`
	Channel           string       `json:"channel"`
	Subject           string       `json:"subject"`
	BodyHTML          string       `json:"body_html"`
	BodyText          string       `json:"body_text"`
	Recipients        string       `json:"recipients"`
	RecipientsCC      *string      `json:"recipients_cc,omitempty"`
	RecipientsBCC     *string      `json:"recipients_bcc,omitempty"`
	State             MessageState `json:"state"`
	CreatedAt         time.Time    `json:"created_at"`
	SentAt            *time.Time   `json:"sent_at,omitempty"`
	AttemptCount      int          `json:"attempt_count"`
	LastAttemptAt     *time.Time   `json:"last_attempt_at,omitempty"`
	ProviderMessageID *string      `json:"provider_message_id,omitempty"`
	ErrorMessage      *string      `json:"error_message,omitempty"`
}

// ChannelEmail is the only implemented delivery channel.
const ChannelEmail = "Email"

// EncodeRecipients serializes an ordered address list for storage.
func EncodeRecipients(addrs []string) (string, error) {
	b, err := json.Marshal(addrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeRecipients parses a stored address list. A nil pointer decodes
// to an empty list.
func DecodeRecipients(raw *string) ([]string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	var addrs []string
	if err := json.Unmarshal([]byte(*raw), &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}
