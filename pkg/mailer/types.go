package mailer

import "fmt"

// Recipient formats a name and email into RFC 5322 address format.
// Returns "Name <email>" if name is provided, otherwise just email.
func Recipient(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// Email represents a fully-prepared email message ready for sending.
type Email struct {
	Subject string   // Email subject
	Text    string   // Plain text body (required)
	HTML    string   // Optional HTML alternative
	From    string   // Overrides Settings.DefaultSender when set
	To      []string // Recipients (at least one required)
}

// Settings is the effective transport configuration for a single send.
// It is resolved from operator overrides and process defaults right before
// each send and never cached.
type Settings struct {
	Server        string
	Username      string
	Password      string
	DefaultSender string
	Port          int
	UseTLS        bool
}

// HasCredentials reports whether both username and password are present.
// Authentication is attempted only in that case.
func (s Settings) HasCredentials() bool {
	return s.Username != "" && s.Password != ""
}
