package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// broker is satisfied by both the Pub/Sub client and the Kafka producer.
type broker interface {
	Ping(context.Context) error
	Publish(ctx context.Context, topic, key string, data []byte, attrs map[string]string) error
}

type publishRecorder interface {
	Published(eventType string)
	Failed(eventType string)
	DeadLettered(reason string)
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Broker        broker
	BrokerName    string
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
	Metrics       publishRecorder
}

// Service drains outbox_events in batches. Each batch runs in one
// transaction holding row locks, so concurrent publishers never ship the
// same row twice.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	broker       broker
	brokerName   string
	registry     registryResolver
	dlq          dlqRepository
	metrics      publishRecorder
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	for _, dep := range []struct {
		name    string
		missing bool
	}{
		{"config", params.Config == nil},
		{"logger", params.Logger == nil},
		{"database client", params.DB == nil},
		{"broker", params.Broker == nil},
		{"outbox repository", params.Repository == nil},
		{"event registry", params.Registry == nil},
		{"dlq repository", params.DLQRepository == nil},
	} {
		if dep.missing {
			return nil, fmt.Errorf("%s is required", dep.name)
		}
	}

	var metrics publishRecorder = noopRecorder{}
	if params.Metrics != nil {
		metrics = params.Metrics
	}
	outboxCfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		broker:       params.Broker,
		brokerName:   cmp.Or(params.BrokerName, "broker"),
		registry:     params.Registry,
		dlq:          params.DLQRepository,
		metrics:      metrics,
		batchSize:    positiveOr(outboxCfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(outboxCfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(outboxCfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func (s *Service) preflight(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", s.db.Ping},
		{s.brokerName, s.broker.Ping},
	}
	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			s.logg.Error(ctx, check.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", check.name, err)
		}
	}
	return nil
}

// Run polls until ctx ends. A full batch is followed immediately by the
// next one; batch errors back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.preflight(ctx); err != nil {
		return err
	}

	wait := s.pollInterval
	for {
		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = min(wait*2, maxBackoff)
		case processed && ctx.Err() == nil:
			wait = s.pollInterval
			continue
		default:
			wait = s.pollInterval
		}
		if err := s.pause(ctx, jittered(wait)); err != nil {
			s.logg.Info(ctx, "outbox publisher stopping")
			return err
		}
	}
}

// delivery is the fate of one event within a batch.
type delivery int

const (
	delivered delivery = iota
	retryLater
	deadLettered
)

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var tally [3]int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		for _, event := range events {
			outcome, err := s.deliver(ctx, tx, event)
			if err != nil {
				return err
			}
			tally[outcome]++
		}
		return nil
	})
	total := tally[delivered] + tally[retryLater] + tally[deadLettered]
	if err == nil && total > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"published":     tally[delivered],
			"retrying":      tally[retryLater],
			"dead_lettered": tally[deadLettered],
			"broker":        s.brokerName,
		}), "outbox batch processed")
	}
	return total > 0, err
}

// deliver publishes one row and records the outcome inside tx. Only
// bookkeeping failures are returned; they roll the whole batch back.
func (s *Service) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (delivery, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return deadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonUnroutable, err, s.logFields(event, outbox.PayloadEnvelope{}, ""))
	}

	fields := s.logFields(event, resolved.Envelope, resolved.Descriptor.Topic)
	pubErr := s.publish(ctx, event, resolved)
	var rejected registry.NonRetryableError
	attempt := event.AttemptCount + 1

	switch {
	case pubErr == nil:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return delivered, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.Published(string(event.EventType))
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return delivered, nil

	case errors.As(pubErr, &rejected):
		return deadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, pubErr, fields)

	case attempt >= s.maxAttempts:
		fields["attempt_count"] = attempt
		return deadLettered, s.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", attempt, pubErr), fields)
	}

	fields["attempt_count"] = attempt
	fields["error"] = pubErr.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox publish failed")
	s.metrics.Failed(string(event.EventType))
	if err := s.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return retryLater, fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return retryLater, nil
}

// deadLetter copies the row into outbox_dlq and retires it from polling.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	fields["replayable"] = reason.Replayable()
	fields["error"] = cause.Error()
	s.logg.Warn(s.logg.WithFields(ctx, fields), "outbox event dead-lettered")

	message := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	s.metrics.DeadLettered(string(reason))
	return nil
}

// publish ships the stored envelope unchanged, keyed by aggregate so
// Kafka partitions keep per-order ordering.
func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	if topic == "" {
		return registry.NewNonRetryableError(fmt.Errorf("no topic for %s", event.EventType))
	}
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	return s.broker.Publish(publishCtx, topic, event.AggregateID.String(), event.Payload, attrs)
}

func (s *Service) logFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"batch_size":     s.batchSize,
		"broker":         s.brokerName,
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) pause(ctx context.Context, d time.Duration) error {
	wake := time.NewTimer(d)
	defer wake.Stop()
	select {
	case <-wake.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

// jittered spreads replicas that started together.
func jittered(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}

type noopRecorder struct{}

func (noopRecorder) Published(string)    {}
func (noopRecorder) Failed(string)       {}
func (noopRecorder) DeadLettered(string) {}
