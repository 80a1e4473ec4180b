package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// SMTPTransport sends mail through a plain-auth SMTP relay. SMTP has no
// provider message id, so Send generates one locally for tracking.
type SMTPTransport struct {
	Server   string
	Port     int
	Username string
	Password string
}

func NewSMTPTransport(server string, port int, username, password string) (*SMTPTransport, error) {
	if server == "" || port == 0 {
		return nil, fmt.Errorf("missing SMTP configuration: server and port are required")
	}
	return &SMTPTransport{Server: server, Port: port, Username: username, Password: password}, nil
}

func (t *SMTPTransport) Send(_ context.Context, m Mail) (string, error) {
	if len(m.To) == 0 {
		return "", fmt.Errorf("no recipients")
	}

	msg := buildMIME(m)
	auth := smtp.PlainAuth("", t.Username, t.Password, t.Server)
	addr := fmt.Sprintf("%s:%d", t.Server, t.Port)

	rcpts := append(append(append([]string(nil), m.To...), m.CC...), m.BCC...)
	if err := smtp.SendMail(addr, auth, m.FromEmail, rcpts, msg); err != nil {
		return "", fmt.Errorf("failed to send email via smtp: %w", err)
	}
	return "smtp-" + uuid.New().String(), nil
}

// buildMIME assembles a multipart/alternative message with text and
// HTML parts. BCC addresses go to the envelope only, never to headers.
func buildMIME(m Mail) []byte {
	const boundary = "alert-dispatch-boundary"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.FromName, m.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.To, ", "))
	if len(m.CC) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(m.CC, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	if m.Text != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(m.Text)
		b.WriteString("\r\n")
	}
	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(m.HTML)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}
