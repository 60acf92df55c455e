package mailer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoServer indicates the effective settings carry no mail server.
	ErrNoServer = errors.New("mailer: mail server is not configured")

	// ErrNoSender indicates neither the email nor the settings provide a From address.
	ErrNoSender = errors.New("mailer: sender address is not configured")

	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("mailer: email must have at least one recipient")

	// ErrNoSubject indicates no subject was provided.
	ErrNoSubject = errors.New("mailer: email must have a subject")

	// ErrNoContent indicates no text body was provided.
	ErrNoContent = errors.New("mailer: email must have a text body")

	// ErrRenderFailed indicates the HTML alternative could not be rendered.
	ErrRenderFailed = errors.New("mailer: failed to render html alternative")

	// ErrSendFailed indicates email sending failed.
	ErrSendFailed = errors.New("mailer: failed to send email")
)

// DeliveryError is a failed delivery attempt through a specific server.
// Diagnose classifies Err only, never the server address.
type DeliveryError struct {
	Err    error
	Server string
	Port   int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("mailer: send via %s:%d: %v", e.Server, e.Port, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
