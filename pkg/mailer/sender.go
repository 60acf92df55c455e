package mailer

import "context"

// Sender defines the minimal interface that email providers must implement.
// It accepts a fully-prepared Email and handles the actual delivery.
type Sender interface {
	// Send delivers an email message.
	// The Email must have To, Subject and Text already set.
	// Returns an error if delivery fails.
	Send(ctx context.Context, email *Email) error
}

// SenderFactory builds a single-use Sender for the given settings.
// A new Sender is built per message so that settings edits apply to the
// very next send and no connection outlives one message.
type SenderFactory func(Settings) Sender
