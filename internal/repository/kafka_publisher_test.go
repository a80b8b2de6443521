package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetRevest/internal/domain/models"
	pkgkafka "AssetRevest/pkg/kafka"
)

type fakeProducer struct {
	topic string
	msgs  []pkgkafka.Message
	err   error
}

func (f *fakeProducer) PublishBatch(_ context.Context, topic string, messages []pkgkafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.topic = topic
	f.msgs = append(f.msgs, messages...)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func TestKafkaPublisherFillsEnvelope(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaPublisher(fp, "revest.events")

	require.NoError(t, p.Publish(context.Background(), models.Event{Type: models.EventTradeClosed, Key: "SPY"}))

	require.Len(t, fp.msgs, 1)
	assert.Equal(t, "revest.events", fp.topic)
	assert.Equal(t, "SPY", string(fp.msgs[0].Key))

	e, ok := fp.msgs[0].Value.(models.Event)
	require.True(t, ok)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "event_type", fp.msgs[0].Headers[0].Key)
	assert.Equal(t, string(models.EventTradeClosed), string(fp.msgs[0].Headers[0].Value))
}

func TestKafkaPublisherReturnsProducerError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaPublisher(&fakeProducer{err: boom}, "t")
	assert.ErrorIs(t, p.Publish(context.Background(), models.Event{Type: models.EventSignal}), boom)
}
