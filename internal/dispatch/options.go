package dispatch

import (
	"log/slog"
	"strings"
	"time"
)

// RecipientMode selects who receives reminder e-mails.
type RecipientMode string

const (
	// RecipientOperator sends every reminder of a cycle to the operator's
	// notification address.
	RecipientOperator RecipientMode = "operator"
	// RecipientClient sends each reminder to its client's e-mail address.
	RecipientClient RecipientMode = "client"
)

// ParseRecipientMode accepts "operator", "client" or an empty string (operator).
func ParseRecipientMode(s string) (RecipientMode, error) {
	switch RecipientMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RecipientOperator:
		return RecipientOperator, nil
	case RecipientClient:
		return RecipientClient, nil
	}
	return "", ErrInvalidMode
}

// CycleObserver is called once at the end of every cycle.
type CycleObserver func(report Report, took time.Duration, err error)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithClock overrides the source of the current instant.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithRecipientMode switches between operator and per-client delivery.
func WithRecipientMode(m RecipientMode) Option {
	return func(d *Dispatcher) {
		if m != "" {
			d.mode = m
		}
	}
}

// WithCycleObserver registers a callback for finished cycles.
func WithCycleObserver(o CycleObserver) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observe = o
		}
	}
}
