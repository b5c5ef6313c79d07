package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic is the kafka topic topology change events land on.
const DefaultTopic = "coref.topology.changed"

// KafkaPublisher emits topology change events to kafka.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects a kafka-backed publisher. Brokers is the seed broker list.
func NewKafka(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

// Publish produces one event record, keyed by entity address so consumers see
// changes to the same grid location in order.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal topology event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.EntityAddress),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && p.logger != nil {
			p.logger.Warn("topology event publish failed",
				"type", event.Type,
				"entity_address", event.EntityAddress,
				"error", err,
			)
		}
	})
	return nil
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
