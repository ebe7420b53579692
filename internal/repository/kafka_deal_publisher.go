package repository

import (
	"context"

	"ComicScout/internal/domain/models"
	"ComicScout/internal/domain/repository"
)

// MessageProducer is the part of pkg/kafka.Producer used by the publisher.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaDealPublisher implements DealPublisher for Kafka.
type KafkaDealPublisher struct {
	producer MessageProducer
	topic    string
}

var _ repository.DealPublisher = (*KafkaDealPublisher)(nil)

func NewKafkaDealPublisher(producer MessageProducer, topic string) *KafkaDealPublisher {
	return &KafkaDealPublisher{producer: producer, topic: topic}
}

// PublishDeals sends the snapshot keyed by its event id.
func (p *KafkaDealPublisher) PublishDeals(ctx context.Context, snapshot models.DealsSnapshot) error {
	return p.producer.Publish(ctx, p.topic, []byte(snapshot.EventID), snapshot)
}

func (p *KafkaDealPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
