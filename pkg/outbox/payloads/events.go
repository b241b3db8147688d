package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderLine is the per-item slice of an order event.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	VariantID uuid.UUID       `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderCreatedEvent is emitted when checkout converts a cart into an order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uuid.UUID           `json:"user_id"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Items         []OrderLine         `json:"items"`

	// CollectOnDelivery tells fulfilment the courier takes the payment.
	CollectOnDelivery bool `json:"collect_on_delivery"`
}

// OrderCancelledEvent is emitted when a customer cancels a pending order.
// Items carry the quantities returned to stock.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      uuid.UUID   `json:"user_id"`
	Items       []OrderLine `json:"items"`
}

// OrderStatusChangedEvent is emitted on admin status transitions.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	UserID         uuid.UUID         `json:"user_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
}

// LowStockEvent flags a variant at or below its reorder point.
type LowStockEvent struct {
	VariantID    uuid.UUID `json:"variant_id"`
	ProductID    uuid.UUID `json:"product_id"`
	ProductTitle string    `json:"product_title"`
	Color        string    `json:"color,omitempty"`
	Size         string    `json:"size,omitempty"`
	QtyAvailable int       `json:"qty_available"`
	ReorderPoint int       `json:"reorder_point"`
}
