// Package registry knows every event the outbox may hold: where it is
// routed and what its payload looks like. The publisher resolves each row
// through it before shipping, so malformed rows are dead-lettered instead of
// reaching consumers.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
	topics  []string
}

// NonRetryableError marks a failure that will not heal by retrying the same
// row or message.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func schema[T any]() func() any {
	return func() any { return new(T) }
}

// NewEventRegistry sends order lifecycle events to the orders topic and
// stock alerts to the inventory topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	switch {
	case cfg.OrdersTopic == "":
		return nil, errors.New("orders topic is required")
	case cfg.InventoryTopic == "":
		return nil, errors.New("inventory topic is required")
	}

	routes := []struct {
		event   enums.OutboxEventType
		topic   string
		payload func() any
	}{
		{enums.EventOrderCreated, cfg.OrdersTopic, schema[payloads.OrderCreatedEvent]()},
		{enums.EventOrderCancelled, cfg.OrdersTopic, schema[payloads.OrderCancelledEvent]()},
		{enums.EventOrderStatusChanged, cfg.OrdersTopic, schema[payloads.OrderStatusChangedEvent]()},
		{enums.EventInventoryLowStock, cfg.InventoryTopic, schema[payloads.LowStockEvent]()},
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(routes))}
	seen := map[string]bool{}
	for _, route := range routes {
		reg.entries[route.event] = EventDescriptor{
			EventType:      route.event,
			AggregateType:  route.event.Aggregate(),
			Topic:          route.topic,
			PayloadFactory: route.payload,
		}
		if !seen[route.topic] {
			seen[route.topic] = true
			reg.topics = append(reg.topics, route.topic)
		}
	}
	return reg, nil
}

// Topics lists each routed topic once, in first-use order.
func (r *EventRegistry) Topics() []string {
	return append([]string(nil), r.topics...)
}

// Resolve checks the row against its descriptor and decodes the typed
// payload. Every failure is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.describe(event)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if envelope.Version != outbox.EnvelopeVersion {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported envelope version %d", envelope.Version))
	}
	if envelope.Type != "" && envelope.Type != event.EventType {
		return nil, NewNonRetryableError(fmt.Errorf("envelope says %s but row says %s", envelope.Type, event.EventType))
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("%s envelope has no data", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func (r *EventRegistry) describe(event models.OutboxEvent) (EventDescriptor, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return desc, fmt.Errorf("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return desc, fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return desc, errors.New("missing aggregate_id")
	}
	return desc, nil
}
