// Package kafka creates the shared franz-go client used by the audit outbox
// worker and the notification dispatcher.
package kafka

import (
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"vouchsafe/internal/platform/config"
)

// New creates a Kafka client from configuration.
// Returns nil if no brokers are configured (Kafka disabled).
func New(cfg config.Kafka) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}
