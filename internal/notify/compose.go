// Package notify builds the text of reminder notifications.
package notify

import (
	"strings"

	"github.com/dmitrymomot/policydesk/internal/crm"
)

const (
	// Subject is used for every reminder notification.
	Subject = "Reminder"

	// TestSubject and TestBody form the settings test message.
	TestSubject = "SMTP configuration test"
	TestBody    = "This is a test message from policydesk."

	dueLayout  = "2006-01-02 15:04"
	dateLayout = "2006-01-02"
)

// Message is a composed notification.
type Message struct {
	Subject string
	Body    string
}

// Compose renders r with its client and policy context.
//
// Line order is fixed: content, due date, client block, policy block.
// The client and policy blocks are emitted only when the reference resolved,
// and optional fields produce no line when empty.
func Compose(r crm.Reminder) Message {
	lines := []string{
		"Reminder: " + r.Content,
		"Due: " + r.DueAt.Format(dueLayout),
	}

	if c := r.Client; c != nil {
		lines = append(lines, "Client:", " - Name: "+c.FullName())
		lines = appendField(lines, "Email", c.Email)
		lines = appendField(lines, "Phone", c.Phone)
		lines = appendField(lines, "Address", c.Address)
	}

	if p := r.Policy; p != nil {
		lines = append(lines, "Policy:", " - Number: "+p.Number)
		lines = appendField(lines, "Product", p.Product)
		if p.StartDate != nil {
			lines = appendField(lines, "Start date", p.StartDate.Format(dateLayout))
		}
		if p.EndDate != nil {
			lines = appendField(lines, "End date", p.EndDate.Format(dateLayout))
		}
		lines = appendField(lines, "Premium", p.Premium)
		lines = appendField(lines, "Status", p.Status)
	}

	return Message{
		Subject: Subject,
		Body:    strings.Join(lines, "\n"),
	}
}

func appendField(lines []string, label, value string) []string {
	if strings.TrimSpace(value) == "" {
		return lines
	}
	return append(lines, " - "+label+": "+value)
}
