package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ResendTransport delivers mail through the Resend HTTP API.
type ResendTransport struct {
	client *resty.Client
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func NewResendTransport(baseURL, apiKey string) (*ResendTransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing Resend configuration: RESEND_API_KEY is required")
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &ResendTransport{client: client}, nil
}

func (t *ResendTransport) Send(ctx context.Context, m Mail) (string, error) {
	if len(m.To) == 0 {
		return "", fmt.Errorf("no recipients")
	}

	payload := resendPayload{
		From:    fmt.Sprintf("%s <%s>", m.FromName, m.FromEmail),
		To:      m.To,
		CC:      m.CC,
		BCC:     m.BCC,
		Subject: m.Subject,
		HTML:    m.HTML,
		Text:    m.Text,
	}

	var result resendResponse
	var apiErr resendError
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		return "", fmt.Errorf("failed to send email via resend: %w", err)
	}
	if resp.IsError() {
		if apiErr.Message != "" {
			return "", fmt.Errorf("resend rejected message (%s): %s", resp.Status(), apiErr.Message)
		}
		return "", fmt.Errorf("resend rejected message: %s", resp.Status())
	}
	return result.ID, nil
}
