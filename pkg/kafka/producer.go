// Package kafka publishes outbox events to Kafka as an alternative to Pub/Sub.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type dialFunc func(ctx context.Context, network, address string) (*kafkago.Conn, error)

// Producer writes to any topic; the topic is set per message.
type Producer struct {
	writer  messageWriter
	brokers []string
	dial    dialFunc
	now     func() time.Time
}

func NewProducer(cfg config.KafkaConfig, logg *logger.Logger) (*Producer, error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: timeout,
		ReadTimeout:  timeout,
	}
	if logg != nil {
		logg.Info(logg.WithField(context.Background(), "brokers", brokers), "kafka producer initialized")
	}
	return newProducer(writer, brokers), nil
}

func newProducer(w messageWriter, brokers []string) *Producer {
	return &Producer{writer: w, brokers: brokers, dial: kafkago.DialContext, now: time.Now}
}

// Publish writes one message. key is hashed for partitioning so events for the
// same aggregate stay ordered.
func (p *Producer) Publish(ctx context.Context, topic, key string, data []byte, attrs map[string]string) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  p.now().UTC(),
	}
	for k, v := range attrs {
		msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message to %s: %w", topic, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (p *Producer) Ping(ctx context.Context) error {
	var lastErr error
	for _, broker := range p.brokers {
		conn, err := p.dial(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		lastErr = errors.New("no brokers configured")
	}
	return fmt.Errorf("kafka ping: %w", lastErr)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
