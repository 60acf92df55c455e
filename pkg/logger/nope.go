package logger

import (
	"io"
	"log/slog"
	"time"
)

const defaultFlushTimeout = 2 * time.Second

// NewNope creates a no-op logger that discards all output.
// Components default to it when no logger is configured.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
