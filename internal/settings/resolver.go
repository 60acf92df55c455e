package settings

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/policydesk/pkg/mailer"
)

// fallbackZone stands in for an unloadable timezone.
var fallbackZone = time.FixedZone("UTC", 0)

// Resolve merges op over def into the settings used for one send.
// A field set to a non-empty value on op wins; otherwise the default applies.
// Fields set in neither are left empty; the transport fails fast on an empty server.
func Resolve(op *OperatorConfig, def Defaults) mailer.Settings {
	s := mailer.Settings{
		Server:        def.MailServer,
		Port:          def.MailPort,
		UseTLS:        def.MailUseTLS,
		Username:      def.MailUsername,
		Password:      def.MailPassword,
		DefaultSender: def.DefaultSender,
	}
	if op == nil {
		return s
	}

	s.Server = pick(op.MailServer, s.Server)
	s.Username = pick(op.MailUsername, s.Username)
	s.Password = pick(op.MailPassword, s.Password)
	s.DefaultSender = pick(op.NotificationEmail, s.DefaultSender)
	if op.MailPort != nil && *op.MailPort > 0 {
		s.Port = *op.MailPort
	}
	if op.MailUseTLS != nil {
		s.UseTLS = *op.MailUseTLS
	}
	return s
}

// ResolveRecipient returns the single operator-wide notification address:
// the operator's notification e-mail, else the process default sender.
// An empty result means no recipient could be resolved.
func ResolveRecipient(op *OperatorConfig, def Defaults) string {
	if op != nil {
		if email := strings.TrimSpace(op.NotificationEmail); email != "" {
			return email
		}
	}
	return strings.TrimSpace(def.DefaultSender)
}

// ResolveSendHour returns the operator's send hour when it is within [0,23],
// otherwise DefaultSendHour. It never fails.
func ResolveSendHour(op *OperatorConfig) int {
	if op == nil || op.SendHour == nil || !ValidSendHour(*op.SendHour) {
		return DefaultSendHour
	}
	return *op.SendHour
}

// ParseSendHour parses textual hour input.
// The second result is false for non-numeric or out-of-range values.
func ParseSendHour(raw string) (int, bool) {
	h, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !ValidSendHour(h) {
		return 0, false
	}
	return h, true
}

// ResolveLocation returns the operator timezone, else the process timezone.
// An empty name means UTC. An unloadable name yields a fixed UTC zone together
// with an error wrapping ErrInvalidTimezone, which callers log and ignore.
func ResolveLocation(op *OperatorConfig, def Defaults) (*time.Location, error) {
	name := def.Timezone
	if op != nil {
		name = pick(strings.TrimSpace(op.Timezone), name)
	}
	if name == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallbackZone, errors.Join(ErrInvalidTimezone, err)
	}
	return loc, nil
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
