package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ListFilters narrow order listings. A nil Status means every status.
type ListFilters struct {
	UserID *uuid.UUID
	Status *enums.OrderStatus
	Search string
}

// ShippingAddress is the delivery destination captured at checkout.
type ShippingAddress struct {
	Street    string `json:"street" validate:"required,max=200"`
	City      string `json:"city" validate:"required,max=100"`
	Area      string `json:"area" validate:"required,max=100"`
	Building  string `json:"building" validate:"required,max=50"`
	Apartment string `json:"apartment" validate:"required,max=50"`
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"orderNumber"`
	UserID          uuid.UUID           `json:"userId"`
	Status          enums.OrderStatus   `json:"status"`
	Items           []OrderItemDTO      `json:"items"`
	ShippingAddress ShippingAddress     `json:"shippingAddress"`
	PaymentMethod   enums.PaymentMethod `json:"paymentMethod"`
	TotalPrice      decimal.Decimal     `json:"totalPrice"`
	Notes           *string             `json:"notes,omitempty"`
	CancelledAt     *time.Time          `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// OrderItemDTO is a frozen order line.
type OrderItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	VariantID uuid.UUID       `json:"variantId"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Material  string          `json:"material,omitempty"`
	Style     string          `json:"style,omitempty"`
}

// Stats aggregates the admin dashboard numbers.
type Stats struct {
	TotalOrders     int64             `json:"totalOrders"`
	TotalRevenue    decimal.Decimal   `json:"totalRevenue"`
	StatusBreakdown []StatusBreakdown `json:"statusBreakdown"`
}

// StatusBreakdown counts orders and value per status.
type StatusBreakdown struct {
	Status     enums.OrderStatus `json:"status"`
	Count      int64             `json:"count"`
	TotalValue decimal.Decimal   `json:"totalValue"`
}

// ToDTO maps an order row with preloaded items.
func ToDTO(o models.Order) OrderDTO {
	dto := OrderDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      o.Status,
		Items:       make([]OrderItemDTO, 0, len(o.Items)),
		ShippingAddress: ShippingAddress{
			Street:    o.ShippingStreet,
			City:      o.ShippingCity,
			Area:      o.ShippingArea,
			Building:  o.ShippingBuilding,
			Apartment: o.ShippingApartment,
		},
		PaymentMethod: o.PaymentMethod,
		TotalPrice:    o.TotalPrice,
		Notes:         o.Notes,
		CancelledAt:   o.CancelledAt,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Subtotal:  item.Subtotal(),
			Size:      item.Size,
			Color:     item.Color,
			Material:  item.Material,
			Style:     item.Style,
		})
	}
	return dto
}
