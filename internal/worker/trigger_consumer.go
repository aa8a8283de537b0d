package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"devpress/publisher/internal/middleware"
	"devpress/publisher/internal/pipeline"
)

type PipelineRunner interface {
	Run(ctx context.Context, name string) (pipeline.Result, error)
}

// TriggerConsumer runs pipelines on request from the trigger topic. Every
// message is finished, including failed runs: the next trigger is the retry.
type TriggerConsumer struct {
	runner  PipelineRunner
	timeout time.Duration
}

func NewTriggerConsumer(r PipelineRunner, timeout time.Duration) *TriggerConsumer {
	return &TriggerConsumer{runner: r, timeout: timeout}
}

func (h *TriggerConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var msg TriggerMessage
	if err := json.Unmarshal(m.Body, &msg); err != nil {
		slog.Error("poison pill: invalid json", "error", err)
		return nil
	}

	correlationID := msg.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res, err := h.runner.Run(ctx, msg.Pipeline)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "triggered run completed", "pipeline", msg.Pipeline, "count", res.Count)
	case errors.Is(err, pipeline.ErrUnknownPipeline):
		slog.WarnContext(ctx, "dropping trigger for unknown pipeline", "pipeline", msg.Pipeline)
	case errors.Is(err, pipeline.ErrAlreadyRunning):
		slog.InfoContext(ctx, "dropping trigger, run in progress", "pipeline", msg.Pipeline)
	default:
		slog.ErrorContext(ctx, "triggered run failed", "pipeline", msg.Pipeline, "error", err)
	}
	return nil
}
