// Package mailer is the outbound email boundary. A Transport is an
// opaque black box that may itself queue or retry; this service only
// records the provider message id or the structured error it returns.
package mailer

import "context"

// Mail is one outbound email.
type Mail struct {
	FromEmail string
	FromName  string
	To        []string
	CC        []string
	BCC       []string
	Subject   string
	HTML      string
	Text      string
}

// Transport sends a Mail and returns the provider's message id.
type Transport interface {
	Send(ctx context.Context, m Mail) (string, error)
}
