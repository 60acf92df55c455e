// Package logger provides structured logging with context extraction and Sentry integration.
//
// It extends log/slog with automatic context-based attribute injection and
// optional Sentry error reporting, so background failures (undeliverable
// reminders, failed cycle commits) surface somewhere other than stdout.
//
// # Basic Usage
//
//	log := logger.New(slog.LevelInfo, logger.CycleIDExtractor(), logger.RequestIDExtractor())
//
//	ctx := logger.WithCycleID(context.Background(), "5f0c...")
//	log.InfoContext(ctx, "dispatch cycle started")
//	// {"level":"INFO","msg":"dispatch cycle started","cycle_id":"5f0c..."}
//
// # Sentry Integration
//
//	log := logger.NewWithSentry(logger.SentryConfig{
//		DSN:         os.Getenv("SENTRY_DSN"),
//		Environment: "production",
//		MinLevel:    slog.LevelWarn,
//	}, slog.LevelInfo, logger.CycleIDExtractor())
//
// If the DSN is empty the logger falls back to stdout only, so the same code
// path works in development and production.
//
// # Context Extractors
//
// A ContextExtractor is called on every log call and returns false to skip
// the attribute. LogHandlerDecorator wraps any slog.Handler with extractors.
package logger
