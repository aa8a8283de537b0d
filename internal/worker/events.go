package worker

import (
	"encoding/json"
	"fmt"

	"devpress/publisher/internal/config"
)

// TriggerMessage asks a worker to run one pipeline.
type TriggerMessage struct {
	Pipeline      string `json:"pipeline"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

type Publisher interface {
	Publish(topic string, body []byte) error
}

// Trigger publishes a run request for the named pipeline.
func Trigger(p Publisher, pipelineName, correlationID string) error {
	body, err := json.Marshal(TriggerMessage{Pipeline: pipelineName, CorrelationID: correlationID})
	if err != nil {
		return err
	}
	if err := p.Publish(config.TopicPipelineTrigger, body); err != nil {
		return fmt.Errorf("publish trigger: %w", err)
	}
	return nil
}
