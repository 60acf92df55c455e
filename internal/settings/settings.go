// Package settings resolves effective configuration by cascading the
// operator's stored overrides over process-level defaults.
//
// All resolvers are pure functions of their inputs. Callers load the
// OperatorConfig fresh before every use so edits apply on the next cycle
// without a restart.
package settings

import "time"

const (
	// DefaultSendHour is used whenever the operator has no valid send hour.
	DefaultSendHour = 8

	// MinSendHour and MaxSendHour bound a valid local send hour.
	MinSendHour = 0
	MaxSendHour = 23
)

// OperatorConfig is the operator's stored settings record.
// There is at most one logical record; any field may be unset.
type OperatorConfig struct {
	UpdatedAt         time.Time
	MailPort          *int
	MailUseTLS        *bool
	SendHour          *int
	NotificationEmail string
	MailServer        string
	MailUsername      string
	MailPassword      string
	Timezone          string
	ID                int64
}

// Defaults are the process-level mail and scheduling defaults supplied at start.
type Defaults struct {
	MailServer    string `env:"MAIL_SERVER"`
	MailUsername  string `env:"MAIL_USERNAME"`
	MailPassword  string `env:"MAIL_PASSWORD"`
	DefaultSender string `env:"MAIL_DEFAULT_SENDER"`
	Timezone      string `env:"TIMEZONE" envDefault:"UTC"`
	MailPort      int    `env:"MAIL_PORT" envDefault:"587"`
	MailUseTLS    bool   `env:"MAIL_USE_TLS" envDefault:"true"`
}

// ValidSendHour reports whether h is a usable local hour.
func ValidSendHour(h int) bool {
	return h >= MinSendHour && h <= MaxSendHour
}
