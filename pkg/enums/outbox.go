package enums

import "slices"

// OutboxAggregateType names the entity an outbox row is about; its id is the
// broker partition key.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregateProductVariant OutboxAggregateType = "product_variant"
)

var validAggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateProductVariant}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(validAggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, validAggregateTypes)
}

// OutboxEventType names the domain event stored in an outbox row.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventInventoryLowStock  OutboxEventType = "inventory_low_stock"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCancelled,
	EventOrderStatusChanged,
	EventInventoryLowStock,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(validOutboxEventTypes, e) }

// Aggregate is the aggregate type every event of this kind is recorded under.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	if e == EventInventoryLowStock {
		return AggregateProductVariant
	}
	return AggregateOrder
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, validOutboxEventTypes)
}
