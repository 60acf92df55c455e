package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err       error
		class     string
		temporary bool
	}{
		{err: ErrNoServer, class: FailureNoServer},
		{err: fmt.Errorf("send: %w", context.DeadlineExceeded), class: FailureTimeout, temporary: true},
		{err: errors.New("dial tcp 10.0.0.1:587: connect: connection refused"), class: FailureDial, temporary: true},
		{err: errors.New("x509: certificate signed by unknown authority"), class: FailureTLS},
		{err: errors.New("535 5.7.8 Username and Password not accepted"), class: FailureAuth},
		{err: errors.New("421 4.7.0 Try again later"), class: FailureRateLimited, temporary: true},
		{err: errors.New("550 5.1.1 user unknown"), class: FailureInvalidRecipient},
		{err: &textproto.Error{Code: 535, Msg: "5.7.8 Username and Password not accepted"}, class: FailureAuth},
		{err: &textproto.Error{Code: 421, Msg: "4.7.0 Too many connections"}, class: FailureRateLimited, temporary: true},
		{err: &textproto.Error{Code: 550, Msg: "5.1.1 The email account does not exist"}, class: FailureInvalidRecipient},
		{err: &textproto.Error{Code: 554, Msg: "5.7.1 Message rejected as spam"}, class: FailureRejected},
		{err: &textproto.Error{Code: 450, Msg: "Mailbox busy"}, class: FailureRejected, temporary: true},
		{err: nil, class: FailureUnknown},
	}
	for _, tt := range tests {
		d := Diagnose(tt.err)
		assert.Equal(t, tt.class, d.Class, "%v", tt.err)
		assert.Equal(t, tt.temporary, d.Temporary, "%v", tt.err)
	}
}

func TestDiagnose_IgnoresServerAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		class string
	}{
		{
			name:  "server name looks like a policy rejection",
			err:   &DeliveryError{Server: "policy.mail.test", Port: 587, Err: errors.New("unexpected EOF")},
			class: FailureUnknown,
		},
		{
			name:  "port contains a 421 reply code",
			err:   &DeliveryError{Server: "mail.test", Port: 4210, Err: errors.New("unexpected EOF")},
			class: FailureUnknown,
		},
		{
			name:  "auth reply through a wrapped delivery error",
			err:   fmt.Errorf("%w: %w", ErrSendFailed, &DeliveryError{Server: "policy.mail.test", Port: 4210, Err: &textproto.Error{Code: 535, Msg: "authentication failed"}}),
			class: FailureAuth,
		},
		{
			name:  "text of a joined cause",
			err:   fmt.Errorf("%w: %w", ErrSendFailed, &DeliveryError{Server: "mail.test", Port: 25, Err: errors.New("gomail: MandatoryStartTLS required, but SMTP server does not support STARTTLS")}),
			class: FailureTLS,
		},
		{
			name:  "dial error on a port with reply digits",
			err:   &DeliveryError{Server: "10.0.0.1", Port: 4210, Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}},
			class: FailureDial,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.class, Diagnose(tt.err).Class)
		})
	}
}
