package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaDispatcher publishes notification events to a Kafka topic consumed by
// the notifications service. Produce is asynchronous; the delivery callback
// only logs.
type KafkaDispatcher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaDispatcher creates a dispatcher over an existing Kafka client.
func NewKafkaDispatcher(client *kgo.Client, topic string, logger *slog.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{client: client, topic: topic, logger: logger}
}

// kafkaEvent is the JSON schema published to the notifications topic.
type kafkaEvent struct {
	Type          string         `json:"type"`
	Channel       string         `json:"channel"`
	RecipientID   string         `json:"recipient_id"`
	ActorID       string         `json:"actor_id,omitempty"`
	ApplicationID string         `json:"application_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func (d *KafkaDispatcher) Notify(ctx context.Context, event Event) {
	payload := kafkaEvent{
		Type:     event.Type,
		Channel:  string(event.Channel),
		Metadata: event.Metadata,
	}
	if !event.RecipientID.IsNil() {
		payload.RecipientID = event.RecipientID.String()
	}
	if !event.ActorID.IsNil() {
		payload.ActorID = event.ActorID.String()
	}
	if !event.ApplicationID.IsNil() {
		payload.ApplicationID = event.ApplicationID.String()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.WarnContext(ctx, "failed to marshal notification event",
			"type", event.Type, "error", err)
		return
	}

	record := &kgo.Record{
		Topic: d.topic,
		Key:   []byte(payload.RecipientID),
		Value: body,
	}
	d.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			d.logger.WarnContext(ctx, "failed to publish notification event",
				"type", event.Type,
				"recipient_id", payload.RecipientID,
				"error", err,
			)
		}
	})
}
