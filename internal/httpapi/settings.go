package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/policydesk/internal/notify"
	"github.com/dmitrymomot/policydesk/internal/settings"
)

const maxBodyBytes = 64 << 10

// settingsView is the GET/PUT /settings response. The password is never
// returned, only whether one is stored.
type settingsView struct {
	UpdatedAt         *time.Time    `json:"updated_at,omitempty"`
	NextRun           *time.Time    `json:"next_run,omitempty"`
	MailPort          *int          `json:"mail_port"`
	MailUseTLS        *bool         `json:"mail_use_tls"`
	NotificationEmail string        `json:"notification_email"`
	MailServer        string        `json:"mail_server"`
	MailUsername      string        `json:"mail_username"`
	Timezone          string        `json:"timezone"`
	Effective         effectiveView `json:"effective"`
	SendHour          int           `json:"send_hour"`
	PasswordSet       bool          `json:"password_set"`
}

type effectiveView struct {
	Server    string `json:"mail_server"`
	Sender    string `json:"default_sender"`
	Recipient string `json:"recipient"`
	Timezone  string `json:"timezone"`
	Port      int    `json:"mail_port"`
	UseTLS    bool   `json:"mail_use_tls"`
}

func (s *Server) view(op *settings.OperatorConfig) settingsView {
	eff := settings.Resolve(op, s.defaults)
	loc, _ := settings.ResolveLocation(op, s.defaults)

	v := settingsView{
		SendHour: settings.ResolveSendHour(op),
		Effective: effectiveView{
			Server:    eff.Server,
			Port:      eff.Port,
			UseTLS:    eff.UseTLS,
			Sender:    eff.DefaultSender,
			Recipient: settings.ResolveRecipient(op, s.defaults),
			Timezone:  loc.String(),
		},
	}
	if next := s.nextRun(); !next.IsZero() {
		v.NextRun = &next
	}
	if op != nil {
		v.NotificationEmail = op.NotificationEmail
		v.MailServer = op.MailServer
		v.MailPort = op.MailPort
		v.MailUseTLS = op.MailUseTLS
		v.MailUsername = op.MailUsername
		v.Timezone = op.Timezone
		v.PasswordSet = op.MailPassword != ""
		if !op.UpdatedAt.IsZero() {
			v.UpdatedAt = &op.UpdatedAt
		}
	}
	return v
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) error {
	op, err := s.store.OperatorConfig(r.Context())
	if err != nil {
		return ErrInternal("failed to load settings", WithError(err))
	}
	writeJSON(w, http.StatusOK, s.view(op))
	return nil
}

// settingsForm accepts numbers as JSON numbers or strings.
type settingsForm struct {
	NotificationEmail string          `json:"notification_email"`
	SendHour          json.RawMessage `json:"send_hour"`
	Timezone          string          `json:"timezone"`
	MailServer        string          `json:"mail_server"`
	MailPort          json.RawMessage `json:"mail_port"`
	MailUseTLS        *bool           `json:"mail_use_tls"`
	MailUsername      string          `json:"mail_username"`
	MailPassword      string          `json:"mail_password"`
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) error {
	var form settingsForm
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&form); err != nil {
		return ErrBadRequest("invalid JSON body", WithError(err))
	}

	ctx := r.Context()
	current, err := s.store.OperatorConfig(ctx)
	if err != nil {
		return ErrInternal("failed to load settings", WithError(err))
	}

	cfg, fields := form.apply(current)
	if len(fields) > 0 {
		return ErrUnprocessable("validation failed", WithFields(fields))
	}

	if err := s.store.SaveOperatorConfig(ctx, cfg); err != nil {
		return ErrInternal("failed to save settings", WithError(err))
	}

	hour := settings.ResolveSendHour(cfg)
	loc, _ := settings.ResolveLocation(cfg, s.defaults)
	if s.sched != nil {
		s.sched.Reschedule(hour, loc)
	}
	s.logger.InfoContext(ctx, "settings updated",
		slog.Int("send_hour", hour),
		slog.String("timezone", loc.String()),
		slog.String("mail_server", cfg.MailServer),
	)

	writeJSON(w, http.StatusOK, s.view(cfg))
	return nil
}

// apply validates the form and merges it over current. An empty password
// keeps the stored one.
func (f settingsForm) apply(current *settings.OperatorConfig) (*settings.OperatorConfig, map[string]string) {
	fields := map[string]string{}

	email := strings.TrimSpace(f.NotificationEmail)
	if email == "" {
		fields["notification_email"] = "is required"
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		fields["notification_email"] = "must be a valid e-mail address"
	}

	var hour int
	raw, present, err := looseText(f.SendHour)
	switch {
	case err != nil || !present:
		fields["send_hour"] = "is required"
	default:
		h, ok := settings.ParseSendHour(raw)
		if !ok {
			fields["send_hour"] = "must be an integer between 0 and 23"
		}
		hour = h
	}

	var port *int
	if raw, present, err := looseText(f.MailPort); err != nil {
		fields["mail_port"] = "must be an integer"
	} else if present {
		p, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			fields["mail_port"] = "must be an integer"
		case p < 1 || p > 65535:
			fields["mail_port"] = "must be between 1 and 65535"
		default:
			port = &p
		}
	}

	tz := strings.TrimSpace(f.Timezone)
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			fields["timezone"] = "unknown time zone"
		}
	}

	if len(fields) > 0 {
		return nil, fields
	}

	cfg := &settings.OperatorConfig{}
	if current != nil {
		*cfg = *current
	}
	cfg.NotificationEmail = email
	cfg.SendHour = &hour
	cfg.Timezone = tz
	cfg.MailServer = strings.TrimSpace(f.MailServer)
	cfg.MailPort = port
	cfg.MailUseTLS = f.MailUseTLS
	cfg.MailUsername = strings.TrimSpace(f.MailUsername)
	if f.MailPassword != "" {
		cfg.MailPassword = f.MailPassword
	}
	return cfg, nil
}

// looseText returns a JSON string or number as text. present is false for
// a missing value, null or a blank string.
func looseText(raw json.RawMessage) (text string, present bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		return s, s != "", nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false, errors.New("not a number or string")
	}
	return n.String(), true, nil
}

type testEmailResult struct {
	Recipient string `json:"recipient"`
	Sent      bool   `json:"sent"`
}

// sendTestEmail sends a fixed message to the resolved recipient through the
// same transport the dispatcher uses.
func (s *Server) sendTestEmail(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	op, err := s.store.OperatorConfig(ctx)
	if err != nil {
		return ErrInternal("failed to load settings", WithError(err))
	}

	recipient := settings.ResolveRecipient(op, s.defaults)
	if recipient == "" {
		return ErrUnprocessable("no notification e-mail configured")
	}

	if !s.transport.Send(ctx, notify.TestSubject, notify.TestBody, recipient, settings.Resolve(op, s.defaults)) {
		return ErrBadGateway("test e-mail could not be delivered; check the server logs")
	}
	writeJSON(w, http.StatusOK, testEmailResult{Recipient: recipient, Sent: true})
	return nil
}
