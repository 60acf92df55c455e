package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger routes robfig/cron logs to slog.
type cronLogger struct {
	log *slog.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, normalize(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(normalize(keysAndValues), slog.Any("error", err))...)
}

// normalize stringifies keys so odd inputs never produce !BADKEY attributes.
func normalize(kv []any) []any {
	out := make([]any, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, slog.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
