package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishBuildsMessage(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, []string{"localhost:9092"})
	fixed := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.Publish(context.Background(), "sf-order-events", "order-1", []byte(`{"a":1}`), map[string]string{"event_type": "order_created"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "sf-order-events", msg.Topic)
	assert.Equal(t, []byte("order-1"), msg.Key)
	assert.Equal(t, fixed, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("order_created"), msg.Headers[0].Value)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newProducer(w, []string{"localhost:9092"})

	assert.Error(t, p.Publish(context.Background(), "", "k", nil, nil))
	err := p.Publish(context.Background(), "t", "k", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestPingReportsDialFailure(t *testing.T) {
	p := newProducer(&fakeWriter{}, []string{"a:1", "b:2"})
	var dialed []string
	p.dial = func(_ context.Context, _, address string) (*kafkago.Conn, error) {
		dialed = append(dialed, address)
		return nil, errors.New("connection refused")
	}
	err := p.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"a:1", "b:2"}, dialed)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(config.KafkaConfig{Brokers: " , "}, nil)
	assert.Error(t, err)
}
