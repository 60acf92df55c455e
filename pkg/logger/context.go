package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	cycleIDKey ctxKey = iota
	requestIDKey
)

// WithCycleID tags ctx with the id of a dispatch cycle.
func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleIDKey, id)
}

// CycleID returns the dispatch cycle id stored in ctx, if any.
func CycleID(ctx context.Context) string {
	id, _ := ctx.Value(cycleIDKey).(string)
	return id
}

// WithRequestID tags ctx with an HTTP request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// CycleIDExtractor adds "cycle_id" to records logged within a dispatch cycle.
func CycleIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := CycleID(ctx); id != "" {
			return slog.String("cycle_id", id), true
		}
		return slog.Attr{}, false
	}
}

// RequestIDExtractor adds "request_id" to records logged while serving a request.
func RequestIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := RequestID(ctx); id != "" {
			return slog.String("request_id", id), true
		}
		return slog.Attr{}, false
	}
}
