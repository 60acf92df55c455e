// Package crm holds the records the reminder dispatcher reads: clients,
// their policies and the reminders attached to them.
//
// Records are owned by the CRUD layer. The dispatcher only ever flips
// Reminder.Delivered from false to true.
package crm

import (
	"strings"
	"time"
)

// Client is the customer a reminder is about.
type Client struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	ID        int64
}

// FullName returns "first last" with surrounding whitespace removed.
func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Policy is an insurance policy owned by a client.
type Policy struct {
	StartDate *time.Time
	EndDate   *time.Time
	Number    string
	Product   string
	Premium   string // decimal rendered by the database, empty when unset
	Status    string
	ID        int64
	ClientID  int64
}

// Reminder is a note due at a naive local timestamp.
//
// DueAt carries wall-clock values only: its location is always time.UTC and
// must not be interpreted as an instant. Use Naive to build comparable values.
type Reminder struct {
	DueAt     time.Time
	Client    *Client // nil when the referenced client no longer exists
	Policy    *Policy // nil when unset or no longer resolvable
	PolicyID  *int64
	Content   string
	ID        int64
	ClientID  int64
	Delivered bool
}

// Naive returns the wall clock of t in loc as a location-free timestamp,
// the same representation Reminder.DueAt uses.
func Naive(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}
