package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/policydesk/pkg/logger"
)

// ResultSent is reported to the observer for a delivered message.
// Failures report a Diagnosis class instead.
const ResultSent = "sent"

// Observer receives the outcome of every send attempt.
type Observer func(result string)

// Transport delivers one message per call and reports success as a bool.
// It never returns errors or panics to the caller: every failure is logged
// with recipient, server and port context and reported as false.
type Transport struct {
	newSender SenderFactory
	logger    *slog.Logger
	observe   Observer
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithTransportLogger sets the logger used for delivery failures.
func WithTransportLogger(l *slog.Logger) TransportOption {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithObserver registers a callback invoked with the result of each send.
func WithObserver(o Observer) TransportOption {
	return func(t *Transport) {
		if o != nil {
			t.observe = o
		}
	}
}

// NewTransport creates a Transport that builds a fresh Sender per message.
func NewTransport(factory SenderFactory, opts ...TransportOption) *Transport {
	t := &Transport{
		newSender: factory,
		logger:    logger.NewNope(),
		observe:   func(string) {},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send delivers subject/body to recipient using settings.
// It fails fast without any network attempt when settings.Server is empty.
func (t *Transport) Send(ctx context.Context, subject, body, recipient string, settings Settings) (ok bool) {
	log := t.logger.With(
		slog.String("recipient", recipient),
		slog.String("server", settings.Server),
		slog.Int("port", settings.Port),
	)

	if settings.Server == "" {
		log.ErrorContext(ctx, "mail server is not configured; message not sent")
		t.observe(FailureNoServer)
		return false
	}

	defer func() {
		if p := recover(); p != nil {
			log.ErrorContext(ctx, "mail transport panicked", slog.Any("panic", p))
			t.observe(FailurePanic)
			ok = false
		}
	}()

	email := &Email{
		To:      []string{recipient},
		From:    settings.DefaultSender,
		Subject: subject,
		Text:    body,
	}
	if html, err := RenderHTML(body); err != nil {
		log.WarnContext(ctx, "sending text only", slog.Any("error", err))
	} else {
		email.HTML = html
	}

	if err := validate(email); err != nil {
		log.ErrorContext(ctx, "invalid email", slog.Any("error", err))
		t.observe(FailureUnknown)
		return false
	}

	start := time.Now()
	if err := t.newSender(settings).Send(ctx, email); err != nil {
		diag := Diagnose(err)
		log.ErrorContext(ctx, "failed to send email",
			slog.String("failure", diag.Class),
			slog.Bool("temporary", diag.Temporary),
			slog.Any("error", fmt.Errorf("%w: %w", ErrSendFailed, err)),
		)
		t.observe(diag.Class)
		return false
	}

	log.DebugContext(ctx, "email sent", slog.Duration("took", time.Since(start)))
	t.observe(ResultSent)
	return true
}

func validate(email *Email) error {
	switch {
	case len(email.To) == 0 || email.To[0] == "":
		return ErrNoRecipient
	case email.Subject == "":
		return ErrNoSubject
	case email.Text == "":
		return ErrNoContent
	}
	return nil
}
