package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// fireLog remembers the local date of the last firing, shared by every
// schedule the Scheduler installs.
type fireLog struct {
	mu   sync.Mutex
	last string
}

const dateKey = "2006-01-02"

func (f *fireLog) record(t time.Time) {
	if t.IsZero() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if d := t.Format(dateKey); d > f.last {
		f.last = d
	}
}

func (f *fireLog) firedOn(t time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last != "" && t.Format(dateKey) == f.last
}

// dailySchedule fires at hour:00 in loc at most once per local calendar day.
type dailySchedule struct {
	spec  cron.Schedule
	loc   *time.Location
	fired *fireLog
	hour  int
}

func newDailySchedule(hour int, loc *time.Location, fired *fireLog) (*dailySchedule, error) {
	spec, err := cronParser.Parse(fmt.Sprintf("0 %d * * *", hour))
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid hour %d: %w", hour, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &dailySchedule{spec: spec, loc: loc, fired: fired, hour: hour}, nil
}

// Next implements cron.Schedule. The parsed expression carries no zone of
// its own, so it follows the location of the time it is given.
func (s *dailySchedule) Next(t time.Time) time.Time {
	next := s.spec.Next(t.In(s.loc))
	if !next.IsZero() && s.fired.firedOn(next) {
		next = s.spec.Next(next)
	}
	return next
}

// slot returns the latest firing time at or before t. A late firing still
// belongs to the day it was scheduled for.
func (s *dailySchedule) slot(t time.Time) time.Time {
	t = t.In(s.loc)
	at := time.Date(t.Year(), t.Month(), t.Day(), s.hour, 0, 0, 0, s.loc)
	if at.After(t) {
		at = time.Date(t.Year(), t.Month(), t.Day()-1, s.hour, 0, 0, 0, s.loc)
	}
	return at
}
