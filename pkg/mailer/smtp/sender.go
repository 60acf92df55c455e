// Package smtp implements mailer.Sender over SMTP using go-mail.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	mail "github.com/go-mail/mail"

	"github.com/dmitrymomot/policydesk/pkg/mailer"
)

const (
	// DefaultTimeout bounds connecting and every SMTP operation.
	DefaultTimeout = 10 * time.Second

	// SubmissionPort always gets STARTTLS, regardless of the TLS flag.
	SubmissionPort = 587
)

// Sender delivers a single message per Send over a fresh connection.
type Sender struct {
	dialer   *mail.Dialer
	settings mailer.Settings
}

// Option configures a Sender.
type Option func(*Sender)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Sender) {
		if d > 0 {
			s.dialer.Timeout = d
		}
	}
}

// WithLocalName sets the name sent in the EHLO greeting.
func WithLocalName(name string) Option {
	return func(s *Sender) {
		if name != "" {
			s.dialer.LocalName = name
		}
	}
}

// New creates a Sender for the given effective settings.
//
// The channel is upgraded with STARTTLS when settings.UseTLS is set or the
// port is SubmissionPort, and left unencrypted otherwise. Credentials are
// used only when both username and password are present.
func New(settings mailer.Settings, opts ...Option) *Sender {
	d := mail.NewDialer(settings.Server, settings.Port, "", "")
	if settings.HasCredentials() {
		d.Username = settings.Username
		d.Password = settings.Password
	}
	d.Timeout = DefaultTimeout
	d.TLSConfig = &tls.Config{
		ServerName: settings.Server,
		MinVersion: tls.VersionTLS12,
	}
	if settings.UseTLS || settings.Port == SubmissionPort {
		d.StartTLSPolicy = mail.MandatoryStartTLS
	} else {
		d.StartTLSPolicy = mail.NoStartTLS
	}

	s := &Sender{dialer: d, settings: settings}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Factory adapts New to mailer.SenderFactory.
func Factory(opts ...Option) mailer.SenderFactory {
	return func(settings mailer.Settings) mailer.Sender {
		return New(settings, opts...)
	}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if s.settings.Server == "" {
		return mailer.ErrNoServer
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := email.From
	if from == "" {
		from = s.settings.DefaultSender
	}
	if from == "" {
		return mailer.ErrNoSender
	}
	if len(email.To) == 0 {
		return mailer.ErrNoRecipient
	}

	m := mail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", email.To...)
	m.SetHeader("Subject", email.Subject)

	m.SetBody("text/plain", email.Text)
	if email.HTML != "" {
		m.AddAlternative("text/html", email.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		// go-mail's SendError does not unwrap; keep the server reply reachable.
		var sendErr *mail.SendError
		if errors.As(err, &sendErr) && sendErr.Cause != nil {
			err = sendErr.Cause
		}
		return &mailer.DeliveryError{Server: s.settings.Server, Port: s.settings.Port, Err: err}
	}
	return nil
}
