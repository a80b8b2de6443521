package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"AssetRevest/internal/domain/models"
	domrepo "AssetRevest/internal/domain/repository"
	pkgkafka "AssetRevest/pkg/kafka"
	applogger "AssetRevest/pkg/logger"
)

type producer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaPublisher implements EventPublisher on a Kafka topic. Events are keyed
// so that one symbol's events keep their order.
type KafkaPublisher struct {
	producer producer
	topic    string
	l        *applogger.Logger
}

var _ domrepo.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(p producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (p *KafkaPublisher) SetLogger(l *applogger.Logger) { p.l = applogger.OrNop(l) }

func (p *KafkaPublisher) Publish(ctx context.Context, e models.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	msg := pkgkafka.Message{
		Key:   []byte(e.Key),
		Value: e,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "trace_id", Value: []byte(e.ID)},
		},
	}
	if err := p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{msg}); err != nil {
		p.l.Error("publish event error",
			applogger.String("topic", p.topic),
			applogger.String("type", string(e.Type)),
			applogger.String("key", e.Key),
			applogger.Error(err),
		)
		return err
	}
	p.l.Debug("event published",
		applogger.String("type", string(e.Type)),
		applogger.String("id", e.ID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops every event. It stands in when Kafka is disabled.
type NopPublisher struct{}

var _ domrepo.EventPublisher = NopPublisher{}

func (NopPublisher) Publish(context.Context, models.Event) error { return nil }

func (NopPublisher) Close() error { return nil }
