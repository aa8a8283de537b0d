package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nsqio/go-nsq"

	"devpress/publisher/internal/config"
)

// NewTriggerNSQConsumer subscribes h to the trigger topic with one message in
// flight, so runs arrive one at a time.
func NewTriggerNSQConsumer(h nsq.Handler) (*nsq.Consumer, error) {
	cfg := nsq.NewConfig()
	cfg.MaxInFlight = 1

	consumer, err := nsq.NewConsumer(config.TopicPipelineTrigger, config.ChannelPublisher, cfg)
	if err != nil {
		return nil, fmt.Errorf("nsq consumer: %w", err)
	}
	consumer.SetLogger(slogAdapter{logger: slog.Default().With("component", "nsq")}, nsq.LogLevelWarning)
	consumer.AddHandler(h)
	return consumer, nil
}

// slogAdapter routes go-nsq's internal log lines to slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Output(_ int, s string) error {
	level, msg := slog.LevelInfo, s
	switch {
	case strings.HasPrefix(s, "ERR"):
		level = slog.LevelError
	case strings.HasPrefix(s, "WRN"):
		level = slog.LevelWarn
	case strings.HasPrefix(s, "DBG"):
		level = slog.LevelDebug
	}
	if len(msg) > 4 && msg[3] == ' ' {
		msg = strings.TrimSpace(msg[4:])
	}
	a.logger.Log(context.Background(), level, msg)
	return nil
}
