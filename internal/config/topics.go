package config

const (
	// TopicPipelineTrigger is the NSQ topic carrying manual or CMS-originated run requests.
	TopicPipelineTrigger = "pipeline.trigger"

	// TopicPipelineResult is the NSQ topic where every run publishes its outcome.
	TopicPipelineResult = "pipeline.result"

	// ChannelPublisher is the consumer channel used by this service.
	ChannelPublisher = "publisher"
)
