// Package scheduler fires the reminder dispatch cycle once a day at a
// configurable local hour and lets the hour change at runtime.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/policydesk/internal/settings"
	"github.com/dmitrymomot/policydesk/pkg/logger"
)

// JobName identifies the single scheduled job in logs.
const JobName = "daily_reminder_sender"

// Job is one dispatch cycle.
type Job func(ctx context.Context) error

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the initial time zone the send hour is interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the clock used to date firings.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler owns one daily cron entry. Cycles never overlap and a panic in a
// cycle never stops the scheduler.
type Scheduler struct {
	job    Job
	logger *slog.Logger
	loc    *time.Location
	now    func() time.Time
	fired  *fireLog

	// serializes cycles across entry swaps
	running sync.Mutex

	mu      sync.Mutex
	cron    *cron.Cron
	baseCtx context.Context
	entry   cron.EntryID
	hour    int
	started bool
}

// New creates a Scheduler for job. Nothing fires until Start.
func New(job Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		job:    job,
		logger: logger.NewNope(),
		loc:    time.UTC,
		now:    time.Now,
		fired:  &fireLog{},
		hour:   settings.DefaultSendHour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the daily job at hour:00 and begins firing.
// An hour outside [0,23] falls back to the default send hour.
// Cycles run on a context detached from ctx cancellation; use Stop to end.
func (s *Scheduler) Start(ctx context.Context, hour int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	hour = normalizeHour(hour)

	cl := cronLogger{log: s.logger}
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	s.baseCtx = context.WithoutCancel(ctx)

	id, err := s.schedule(hour, s.loc)
	if err != nil {
		return err
	}
	s.entry = id
	s.hour = hour
	s.cron.Start()
	s.started = true

	// Entry blocks until the running loop has computed Next.
	s.logger.InfoContext(ctx, "scheduler started",
		slog.String("job", JobName),
		slog.Int("hour", hour),
		slog.String("location", s.loc.String()),
		slog.Time("next_run", s.cron.Entry(id).Next),
	)
	return nil
}

// Reschedule moves the daily job to hour:00 in loc from the next firing on.
// A nil loc keeps the current time zone. A running cycle is not interrupted.
// If the job already fired today, the new hour applies from tomorrow.
// Calling it on a nil or not started Scheduler does nothing.
func (s *Scheduler) Reschedule(hour int, loc *time.Location) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	hour = normalizeHour(hour)
	if loc == nil {
		loc = s.loc
	}

	s.fired.record(s.cron.Entry(s.entry).Prev.In(loc))
	id, err := s.schedule(hour, loc)
	if err != nil {
		s.logger.Error("failed to reschedule, keeping previous hour",
			slog.Int("hour", s.hour),
			slog.Any("error", err),
		)
		return
	}
	s.cron.Remove(s.entry)
	prev := s.hour
	s.entry = id
	s.hour = hour
	s.loc = loc

	s.logger.Info("scheduler rescheduled",
		slog.String("job", JobName),
		slog.Int("previous_hour", prev),
		slog.Int("hour", hour),
		slog.String("location", loc.String()),
		slog.Time("next_run", s.cron.Entry(id).Next),
	)
}

// Hour returns the hour the job currently fires at.
func (s *Scheduler) Hour() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hour
}

// NextRun returns the next firing time, or zero when not started.
func (s *Scheduler) NextRun() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Stop halts firing and waits for a running cycle until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	done := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-done.Done():
		s.logger.InfoContext(ctx, "scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.Join(ErrStopTimeout, ctx.Err())
	}
}

// Healthcheck reports whether the scheduler is running.
// Compatible with health.CheckFunc.
func (s *Scheduler) Healthcheck() func(ctx context.Context) error {
	return func(context.Context) error {
		if s == nil {
			return ErrHealthcheckFailed
		}
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if !started {
			return errors.Join(ErrHealthcheckFailed, ErrNotRunning)
		}
		return nil
	}
}

// Location returns the time zone the send hour is interpreted in.
func (s *Scheduler) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc
}

// schedule adds a new entry; the caller holds s.mu.
func (s *Scheduler) schedule(hour int, loc *time.Location) (cron.EntryID, error) {
	sched, err := newDailySchedule(hour, loc, s.fired)
	if err != nil {
		return 0, err
	}
	return s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(sched) })), nil
}

// fire runs one cycle for the slot of sched unless another cycle is still
// in progress.
func (s *Scheduler) fire(sched *dailySchedule) {
	s.fired.record(sched.slot(s.now()))

	if !s.running.TryLock() {
		s.logger.Warn("previous cycle still running, skipping", slog.String("job", JobName))
		return
	}
	defer s.running.Unlock()

	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.ErrorContext(ctx, "scheduled cycle failed",
			slog.String("job", JobName),
			slog.Duration("took", time.Since(start)),
			slog.Any("error", err),
		)
		return
	}
	s.logger.DebugContext(ctx, "scheduled cycle finished",
		slog.String("job", JobName),
		slog.Duration("took", time.Since(start)),
	)
}

func normalizeHour(h int) int {
	if !settings.ValidSendHour(h) {
		return settings.DefaultSendHour
	}
	return h
}
