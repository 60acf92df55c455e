package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/policydesk/pkg/logger"
)

func noop(context.Context) error { return nil }

func mustDaily(t *testing.T, hour int, fired *fireLog) *dailySchedule {
	t.Helper()
	s, err := newDailySchedule(hour, time.UTC, fired)
	require.NoError(t, err)
	return s
}

// lockedBuffer collects log output written from the cron goroutine too.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDailySchedule_Next(t *testing.T) {
	t.Parallel()

	day := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }

	t.Run("same day before hour", func(t *testing.T) {
		t.Parallel()
		s, err := newDailySchedule(8, time.UTC, &fireLog{})
		require.NoError(t, err)
		assert.Equal(t, day(1, 8), s.Next(day(1, 7)))
	})

	t.Run("after hour rolls to tomorrow", func(t *testing.T) {
		t.Parallel()
		s, err := newDailySchedule(8, time.UTC, &fireLog{})
		require.NoError(t, err)
		assert.Equal(t, day(2, 8), s.Next(day(1, 8)))
	})

	t.Run("later hour on a day that already fired waits for tomorrow", func(t *testing.T) {
		t.Parallel()
		fired := &fireLog{}
		fired.record(day(1, 8))
		s, err := newDailySchedule(10, time.UTC, fired)
		require.NoError(t, err)
		assert.Equal(t, day(2, 10), s.Next(day(1, 9)))
	})

	t.Run("earlier hour is not caught up", func(t *testing.T) {
		t.Parallel()
		s, err := newDailySchedule(6, time.UTC, &fireLog{})
		require.NoError(t, err)
		assert.Equal(t, day(2, 6), s.Next(day(1, 7)))
	})

	t.Run("invalid hour", func(t *testing.T) {
		t.Parallel()
		_, err := newDailySchedule(24, time.UTC, &fireLog{})
		require.Error(t, err)
	})
}

func TestFireLog(t *testing.T) {
	t.Parallel()

	f := &fireLog{}
	assert.False(t, f.firedOn(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)))

	f.record(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	f.record(time.Time{})
	f.record(time.Date(2024, 2, 28, 8, 0, 0, 0, time.UTC))

	assert.True(t, f.firedOn(time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)))
	assert.False(t, f.firedOn(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
}

func TestScheduler_StartAndReschedule(t *testing.T) {
	t.Parallel()

	s := New(noop, WithLogger(logger.NewNope()))
	require.NoError(t, s.Start(context.Background(), 14))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	next := s.NextRun()
	require.False(t, next.IsZero())
	assert.Equal(t, 14, next.Hour())
	assert.Zero(t, next.Minute())
	assert.Equal(t, 14, s.Hour())

	require.ErrorIs(t, s.Start(context.Background(), 9), ErrAlreadyStarted)

	s.Reschedule(15, nil)
	assert.Equal(t, 15, s.Hour())
	assert.Equal(t, 15, s.NextRun().Hour())

	s.Reschedule(42, nil)
	assert.Equal(t, 8, s.Hour())
	assert.Equal(t, 8, s.NextRun().Hour())

	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_InvalidStartHourUsesDefault(t *testing.T) {
	t.Parallel()

	s := New(noop)
	require.NoError(t, s.Start(context.Background(), -1))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	assert.Equal(t, 8, s.Hour())
}

func TestScheduler_Location(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	s := New(noop, WithLocation(loc))
	require.NoError(t, s.Start(context.Background(), 6))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	assert.Equal(t, 6, s.NextRun().In(loc).Hour())
}

func TestScheduler_RescheduleNoOp(t *testing.T) {
	t.Parallel()

	t.Run("nil", func(t *testing.T) {
		t.Parallel()
		var s *Scheduler
		assert.NotPanics(t, func() { s.Reschedule(9, nil) })
		assert.True(t, s.NextRun().IsZero())
	})

	t.Run("not started", func(t *testing.T) {
		t.Parallel()
		s := New(noop)
		s.Reschedule(9, nil)
		assert.Equal(t, 8, s.Hour())
		assert.True(t, s.NextRun().IsZero())
	})
}

func TestScheduler_FireSerializesCycles(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	s := New(func(context.Context) error {
		calls.Add(1)
		close(entered)
		<-release
		return nil
	})
	s.baseCtx = context.Background()
	sched := mustDaily(t, 8, s.fired)

	done := make(chan struct{})
	go func() {
		s.fire(sched)
		close(done)
	}()
	<-entered

	s.fire(sched)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	<-done
}

func TestScheduler_FireRecordsDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s := New(func(context.Context) error { return errors.New("cycle failed") }, WithClock(func() time.Time { return now }))
	s.baseCtx = context.Background()

	s.fire(mustDaily(t, 8, s.fired))
	assert.True(t, s.fired.firedOn(now))
}

func TestScheduler_LateFireKeepsNextDay(t *testing.T) {
	t.Parallel()

	// The 23:00 slot of March 1 is delivered just after midnight.
	late := time.Date(2024, 3, 2, 0, 0, 1, 0, time.UTC)
	s := New(noop, WithClock(func() time.Time { return late }))
	s.baseCtx = context.Background()

	sched := mustDaily(t, 23, s.fired)
	s.fire(sched)

	assert.True(t, s.fired.firedOn(time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)))
	assert.False(t, s.fired.firedOn(late))
	assert.Equal(t, time.Date(2024, 3, 2, 23, 0, 0, 0, time.UTC), sched.Next(late))
}

func TestDailySchedule_Slot(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	s, err := newDailySchedule(9, berlin, &fireLog{})
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"on time", time.Date(2024, 3, 1, 9, 0, 0, 0, berlin), time.Date(2024, 3, 1, 9, 0, 0, 0, berlin)},
		{"late same day", time.Date(2024, 3, 1, 17, 30, 0, 0, berlin), time.Date(2024, 3, 1, 9, 0, 0, 0, berlin)},
		{"before hour belongs to yesterday", time.Date(2024, 3, 2, 8, 59, 0, 0, berlin), time.Date(2024, 3, 1, 9, 0, 0, 0, berlin)},
		{"utc clock", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 9, 0, 0, 0, berlin)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tt.want.Equal(s.slot(tt.at)), "got %s", s.slot(tt.at))
		})
	}
}

func TestDailySchedule_FollowsItsLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	s, err := newDailySchedule(6, loc, &fireLog{})
	require.NoError(t, err)

	// 04:00 UTC is 07:00 in loc, past the send hour there.
	next := s.Next(time.Date(2024, 3, 1, 4, 0, 0, 0, time.UTC))
	assert.True(t, time.Date(2024, 3, 2, 6, 0, 0, 0, loc).Equal(next), "got %s", next)
}

func TestScheduler_RescheduleChangesLocation(t *testing.T) {
	t.Parallel()

	s := New(noop)
	require.NoError(t, s.Start(context.Background(), 6))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	loc := time.FixedZone("UTC-5", -5*60*60)
	s.Reschedule(7, loc)

	assert.Equal(t, loc, s.Location())
	assert.Equal(t, 7, s.NextRun().In(loc).Hour())

	s.Reschedule(9, nil)
	assert.Equal(t, loc, s.Location())
	assert.Equal(t, 9, s.NextRun().In(loc).Hour())
}

func TestScheduler_StartLogsNextRun(t *testing.T) {
	t.Parallel()

	var buf lockedBuffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	s := New(noop, WithLogger(log))
	require.NoError(t, s.Start(context.Background(), 14))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	var started map[string]any
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, `"msg":"scheduler started"`) {
			require.NoError(t, json.Unmarshal([]byte(line), &started))
		}
	}
	require.NotNil(t, started)

	next, err := time.Parse(time.RFC3339Nano, started["next_run"].(string))
	require.NoError(t, err)
	assert.False(t, next.IsZero())
	assert.Equal(t, 14, next.Hour())
}

func TestScheduler_PanicDoesNotLeakLock(t *testing.T) {
	t.Parallel()

	s := New(func(context.Context) error { panic("boom") })
	s.baseCtx = context.Background()

	job := cron.NewChain(cron.Recover(cronLogger{log: logger.NewNope()})).Then(cron.FuncJob(func() { s.fire(mustDaily(t, 8, s.fired)) }))
	assert.NotPanics(t, job.Run)

	require.True(t, s.running.TryLock())
	s.running.Unlock()
}

func TestScheduler_Healthcheck(t *testing.T) {
	t.Parallel()

	s := New(noop)
	check := s.Healthcheck()
	require.ErrorIs(t, check(context.Background()), ErrNotRunning)

	require.NoError(t, s.Start(context.Background(), 8))
	require.NoError(t, check(context.Background()))

	require.NoError(t, s.Stop(context.Background()))
	require.ErrorIs(t, check(context.Background()), ErrHealthcheckFailed)

	var nilScheduler *Scheduler
	require.ErrorIs(t, nilScheduler.Healthcheck()(context.Background()), ErrHealthcheckFailed)
}
