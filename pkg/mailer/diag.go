package mailer

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
)

// Failure classes reported by Diagnose.
const (
	FailureNoServer         = "no_server"
	FailureTimeout          = "timeout"
	FailureDial             = "dial"
	FailureTLS              = "tls"
	FailureAuth             = "auth"
	FailureRateLimited      = "rate_limited"
	FailureInvalidRecipient = "invalid_recipient"
	FailureRejected         = "rejected"
	FailureNetwork          = "network"
	FailurePanic            = "panic"
	FailureUnknown          = "unknown"
)

// Diagnosis classifies a delivery error.
type Diagnosis struct {
	Class     string
	Temporary bool // a later retry may succeed
}

// Diagnose classifies err. SMTP replies are classified by their code, other
// errors by type and then by the text of the innermost cause, so the server
// name or port in a wrapping message never affects the class.
func Diagnose(err error) Diagnosis {
	if err == nil {
		return Diagnosis{Class: FailureUnknown}
	}
	if errors.Is(err, ErrNoServer) {
		return Diagnosis{Class: FailureNoServer}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Diagnosis{Class: FailureTimeout, Temporary: true}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Diagnosis{Class: FailureTimeout, Temporary: true}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return Diagnosis{Class: FailureDial, Temporary: true}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Diagnosis{Class: FailureDial, Temporary: true}
	}

	var reply *textproto.Error
	if errors.As(err, &reply) {
		return diagnoseReply(reply.Code, strings.ToLower(reply.Msg))
	}

	if d, ok := diagnoseText(strings.ToLower(rootCause(err).Error())); ok {
		return d
	}
	if errors.As(err, &ne) {
		return Diagnosis{Class: FailureNetwork, Temporary: true}
	}
	return Diagnosis{Class: FailureUnknown}
}

func diagnoseReply(code int, msg string) Diagnosis {
	switch {
	case code == 421, code == 451, strings.Contains(msg, "4.7.0"):
		return Diagnosis{Class: FailureRateLimited, Temporary: true}
	case code == 530, code == 534, code == 535, code == 538, strings.Contains(msg, "5.7.8"):
		return Diagnosis{Class: FailureAuth}
	case code == 551, strings.Contains(msg, "5.1.1"),
		strings.Contains(msg, "user unknown"),
		strings.Contains(msg, "mailbox not found"):
		return Diagnosis{Class: FailureInvalidRecipient}
	}
	return Diagnosis{Class: FailureRejected, Temporary: code >= 400 && code < 500}
}

func diagnoseText(s string) (Diagnosis, bool) {
	switch {
	case strings.Contains(s, "timeout"):
		return Diagnosis{Class: FailureTimeout, Temporary: true}, true
	case strings.Contains(s, "connection refused"),
		strings.Contains(s, "no such host"):
		return Diagnosis{Class: FailureDial, Temporary: true}, true
	case strings.Contains(s, "x509:"),
		strings.Contains(s, "starttls"),
		strings.Contains(s, "tls") && (strings.Contains(s, "handshake") || strings.Contains(s, "certificate")):
		return Diagnosis{Class: FailureTLS}, true
	case strings.Contains(s, "5.7.8"),
		strings.Contains(s, "authentication failed"),
		strings.Contains(s, "unencrypted connection"):
		return Diagnosis{Class: FailureAuth}, true
	case strings.Contains(s, "4.7.0"),
		strings.Contains(s, "rate limit"),
		strings.Contains(s, "try again later"):
		return Diagnosis{Class: FailureRateLimited, Temporary: true}, true
	case strings.Contains(s, "5.1.1"),
		strings.Contains(s, "user unknown"),
		strings.Contains(s, "mailbox not found"):
		return Diagnosis{Class: FailureInvalidRecipient}, true
	case strings.Contains(s, "5.7.1"),
		strings.Contains(s, "message rejected"):
		return Diagnosis{Class: FailureRejected}, true
	}
	return Diagnosis{}, false
}

// rootCause follows wrapping down to the innermost error. For multi-error
// wrappers the last error is followed, matching fmt.Errorf("%w: %w", kind, cause).
func rootCause(err error) error {
	for {
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			next := u.Unwrap()
			if next == nil {
				return err
			}
			err = next
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 {
				return err
			}
			err = errs[len(errs)-1]
		default:
			return err
		}
	}
}
