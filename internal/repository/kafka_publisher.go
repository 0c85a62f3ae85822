package repository

import (
	"context"

	"RWAPrice/internal/domain/models"
	pkgkafka "RWAPrice/pkg/kafka"
)

// KafkaSignalPublisher publishes synthesized price signals to a Kafka topic,
// keyed by asset id so per-asset ordering is preserved.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

// Publish sends the signal to the signals topic.
func (p *KafkaSignalPublisher) Publish(ctx context.Context, signal *models.PriceSignal) error {
	return p.producer.Publish(ctx, p.topic, []byte(signal.AssetID), signal)
}

// PublishMessage sends an arbitrary payload to a topic. Used by the log
// collector for aggregated error reporting.
func (p *KafkaSignalPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// Close closes the underlying producer.
func (p *KafkaSignalPublisher) Close() error {
	return p.producer.Close()
}
