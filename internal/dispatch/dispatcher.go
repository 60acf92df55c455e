// Package dispatch runs reminder delivery cycles: load due reminders, e-mail
// each one and mark the delivered ones in a single batch.
//
// A Dispatcher keeps no state between cycles. Delivery is at-least-once: a
// crash after a send but before the batch commit resends on the next cycle.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/policydesk/internal/crm"
	"github.com/dmitrymomot/policydesk/internal/notify"
	"github.com/dmitrymomot/policydesk/internal/settings"
	"github.com/dmitrymomot/policydesk/pkg/logger"
	"github.com/dmitrymomot/policydesk/pkg/mailer"
)

// Cycle outcomes reported in Report.Status.
const (
	StatusIdle        = "idle"
	StatusNoRecipient = "no_recipient"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// Repository loads due reminders and records deliveries.
type Repository interface {
	FindDue(ctx context.Context, now time.Time) ([]crm.Reminder, error)
	MarkDelivered(ctx context.Context, ids ...int64) (int64, error)
}

// ConfigSource loads the operator's settings record; nil means none saved.
type ConfigSource interface {
	OperatorConfig(ctx context.Context) (*settings.OperatorConfig, error)
}

// Transport delivers one message and reports success.
type Transport interface {
	Send(ctx context.Context, subject, body, recipient string, settings mailer.Settings) bool
}

// Report summarizes one cycle.
type Report struct {
	CycleID string `json:"cycle_id"`
	Status  string `json:"status"`
	Due     int    `json:"due"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
	Marked  int64  `json:"marked"`
}

// Dispatcher runs delivery cycles.
type Dispatcher struct {
	repo      Repository
	configs   ConfigSource
	transport Transport
	defaults  settings.Defaults
	logger    *slog.Logger
	now       func() time.Time
	observe   CycleObserver
	mode      RecipientMode
}

// New creates a Dispatcher. defaults are the process-level mail settings the
// operator's record is layered over.
func New(repo Repository, configs ConfigSource, transport Transport, defaults settings.Defaults, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		repo:      repo,
		configs:   configs,
		transport: transport,
		defaults:  defaults,
		logger:    logger.NewNope(),
		now:       time.Now,
		observe:   func(Report, time.Duration, error) {},
		mode:      RecipientOperator,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RunCycle delivers every reminder due now. Individual send failures never
// abort the cycle; failed reminders stay undelivered for the next one.
// An error is returned only when the due scan or the final commit fails.
func (d *Dispatcher) RunCycle(ctx context.Context) (report Report, err error) {
	report.CycleID = uuid.NewString()
	ctx = logger.WithCycleID(ctx, report.CycleID)

	start := time.Now()
	defer func() {
		d.observe(report, time.Since(start), err)
	}()

	op := d.loadOperatorConfig(ctx)
	loc, locErr := settings.ResolveLocation(op, d.defaults)
	if locErr != nil {
		d.logger.WarnContext(ctx, "invalid timezone, using UTC", slog.Any("error", locErr))
	}
	now := crm.Naive(d.now(), loc)

	due, err := d.repo.FindDue(ctx, now)
	if err != nil {
		report.Status = StatusFailed
		return report, fmt.Errorf("%w: %w", ErrFindDue, err)
	}
	report.Due = len(due)
	if len(due) == 0 {
		report.Status = StatusIdle
		d.logger.InfoContext(ctx, "no reminders due", slog.Time("now", now))
		return report, nil
	}

	operatorRecipient := settings.ResolveRecipient(op, d.defaults)
	if d.mode == RecipientOperator && operatorRecipient == "" {
		report.Status = StatusNoRecipient
		d.logger.WarnContext(ctx, "no notification recipient configured; reminders left pending",
			slog.Int("due", len(due)),
		)
		return report, nil
	}

	delivered := make([]int64, 0, len(due))
	for _, r := range due {
		recipient := operatorRecipient
		if d.mode == RecipientClient {
			if r.Client == nil || r.Client.Email == "" {
				report.Skipped++
				d.logger.WarnContext(ctx, "client has no e-mail; reminder left pending",
					slog.Int64("reminder_id", r.ID),
					slog.Int64("client_id", r.ClientID),
				)
				continue
			}
			recipient = mailer.Recipient(r.Client.FullName(), r.Client.Email)
		}

		msg := notify.Compose(r)
		// Settings are resolved per message so edits made mid-cycle apply.
		mailSettings := settings.Resolve(d.loadOperatorConfig(ctx), d.defaults)

		if !d.send(ctx, msg, recipient, mailSettings) {
			report.Failed++
			d.logger.WarnContext(ctx, "reminder not delivered", slog.Int64("reminder_id", r.ID))
			continue
		}
		report.Sent++
		delivered = append(delivered, r.ID)
	}

	report.Marked, err = d.repo.MarkDelivered(ctx, delivered...)
	if err != nil {
		report.Status = StatusFailed
		d.logger.ErrorContext(ctx, "failed to mark reminders delivered",
			slog.Int("sent", report.Sent),
			slog.Any("error", err),
		)
		return report, fmt.Errorf("%w: %w", ErrCommitMarks, err)
	}

	report.Status = StatusCompleted
	d.logger.InfoContext(ctx, "reminder cycle completed",
		slog.Int("due", report.Due),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
		slog.Int64("marked", report.Marked),
	)
	return report, nil
}

// send calls the transport and turns a panic into a failed delivery.
func (d *Dispatcher) send(ctx context.Context, msg notify.Message, recipient string, s mailer.Settings) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.ErrorContext(ctx, "mail transport panicked", slog.Any("panic", p))
			ok = false
		}
	}()
	return d.transport.Send(ctx, msg.Subject, msg.Body, recipient, s)
}

// loadOperatorConfig treats a load error like a missing record.
func (d *Dispatcher) loadOperatorConfig(ctx context.Context) *settings.OperatorConfig {
	op, err := d.configs.OperatorConfig(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to load operator config, using defaults", slog.Any("error", err))
		return nil
	}
	return op
}
