package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/policydesk/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestCycleIDExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, slog.LevelInfo, logger.CycleIDExtractor(), logger.RequestIDExtractor())

	ctx := logger.WithCycleID(context.Background(), "cycle-1")
	log.InfoContext(ctx, "dispatch cycle started")

	rec := decode(t, &buf)
	assert.Equal(t, "cycle-1", rec["cycle_id"])
	assert.NotContains(t, rec, "request_id")
	assert.Equal(t, "cycle-1", logger.CycleID(ctx))
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, slog.LevelInfo, logger.RequestIDExtractor())

	log.InfoContext(logger.WithRequestID(context.Background(), "req-9"), "settings saved")

	rec := decode(t, &buf)
	assert.Equal(t, "req-9", rec["request_id"])
}

func TestNewWithWriter_Level(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, slog.LevelWarn)

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.NotZero(t, buf.Len())
}

func TestLogHandlerDecorator_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, slog.LevelInfo, nil, logger.CycleIDExtractor()).
		With(slog.String("component", "scheduler"))

	log.InfoContext(logger.WithCycleID(context.Background(), "c-2"), "fired")

	rec := decode(t, &buf)
	assert.Equal(t, "scheduler", rec["component"])
	assert.Equal(t, "c-2", rec["cycle_id"])
}

func TestNewWithSentry_NoDSN(t *testing.T) {
	t.Parallel()

	log := logger.NewWithSentry(logger.SentryConfig{}, slog.LevelInfo)
	require.NotNil(t, log)
}
