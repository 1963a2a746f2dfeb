package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gomail/gomail"
)

// Mailer delivers a plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an authenticated SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// LogMailer stands in when no SMTP relay is configured. The body carries
// the verification code, so it is only logged at debug level.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	slog.Info("email not sent, no SMTP relay configured", "to", to, "subject", subject)
	slog.DebugContext(ctx, "unsent email body", "to", to, "body", body)
	return nil
}

const verificationSubject = "Verification Code - Skin Cancer Detection App"

func verificationBody(code string) string {
	return fmt.Sprintf(`Dear User,

Your verification code for Skin Cancer Detection App is: %s

Please enter this code to verify your email address.

Regards,
Skin Cancer Detection Team
`, code)
}
