package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

type cronLogger struct {
	logger *slog.Logger
}

// NewLogger adapts slog to cron.Logger. Cron's routine info lines are logged
// at debug level.
func NewLogger(l *slog.Logger) cron.Logger {
	return cronLogger{logger: l}
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error(msg, append(keysAndValues, "error", err)...)
}
