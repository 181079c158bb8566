// Package mail delivers confirmation emails. A Dispatcher queues requests
// from the request path and hands them to a Mailer on worker goroutines.
package mail

import (
	"context"

	"github.com/dmitrijs2005/contactbook/internal/logging"
)

// Message is a rendered email with a plain-text and an HTML alternative.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them. It is
// used when no SMTP host is configured.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "mail")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info(ctx, "email", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}
