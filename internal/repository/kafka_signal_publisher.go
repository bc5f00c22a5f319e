package repository

import (
	"context"

	"SignalFlow/internal/domain/models"
	"SignalFlow/internal/domain/repository"
	pkgkafka "SignalFlow/pkg/kafka"
)

// KafkaSignalPublisher pushes every emitted signal onto the unfiltered
// firehose topic, keyed by symbol so one entity's signals stay ordered.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.SignalPublisher {
	if topic == "" {
		topic = "signals"
	}
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, s models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), s)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
