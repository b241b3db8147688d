package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/bootstrap"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/kafka"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
)

type closableBroker interface {
	broker
	Close() error
}

func main() {
	bootstrap.Main("outbox-publisher", run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	cfg, logg, conn := rt.Config, rt.Logger, rt.DB.DB()

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}

	brokerName, eventBroker, err := newBroker(ctx, cfg, events.Topics(), logg)
	if err != nil {
		return fmt.Errorf("bootstrap %s: %w", brokerName, err)
	}
	rt.OnClose(brokerName, eventBroker.Close)

	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            rt.DB,
		Broker:        eventBroker,
		BrokerName:    brokerName,
		Repository:    outbox.NewRepository(conn),
		Registry:      events,
		DLQRepository: outbox.NewDLQRepository(conn),
		Metrics:       metrics.NewOutboxMetrics(reg),
	})
	if err != nil {
		return fmt.Errorf("outbox publisher: %w", err)
	}

	ctx = logg.WithField(ctx, "broker", brokerName)
	go metrics.Serve(ctx, cfg.Service.MetricsAddr, reg, logg)
	logg.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}

// newBroker picks the transport named by STOREFRONT_EVENT_BROKER. Both
// verify connectivity before the first batch.
func newBroker(ctx context.Context, cfg *config.Config, topics []string, logg *logger.Logger) (string, closableBroker, error) {
	if cfg.Eventing.UsesKafka() {
		producer, err := kafka.NewProducer(cfg.Kafka, logg)
		return config.BrokerKafka, producer, err
	}
	client, err := pubsub.NewClient(ctx, cfg.GCP, topics, logg)
	return config.BrokerPubSub, client, err
}
