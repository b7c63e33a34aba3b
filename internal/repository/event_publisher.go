package repository

import (
	"context"
	"fmt"

	"DeclCast/internal/domain/models"
	pkgkafka "DeclCast/pkg/kafka"
)

// KafkaPublisher publishes domain events as JSON keyed by customer id.
type KafkaPublisher struct {
	p *pkgkafka.Producer
}

func NewKafkaPublisher(p *pkgkafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{p: p}
}

func (k *KafkaPublisher) Publish(ctx context.Context, ev models.Event) error {
	if err := k.p.Publish(ctx, []byte(ev.CustomerID), ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error { return k.p.Close() }

// NoopPublisher drops every event. Used when kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.Event) error { return nil }
func (NoopPublisher) Close() error                               { return nil }
