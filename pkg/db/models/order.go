package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is an immutable purchase snapshot plus a mutable status.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	OrderNumber       string              `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	ShippingStreet    string              `gorm:"column:shipping_street;not null"`
	ShippingCity      string              `gorm:"column:shipping_city;not null"`
	ShippingArea      string              `gorm:"column:shipping_area;not null"`
	ShippingBuilding  string              `gorm:"column:shipping_building;not null"`
	ShippingApartment string              `gorm:"column:shipping_apartment;not null"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cod'"`
	TotalPrice        decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	Notes             *string             `gorm:"column:notes"`
	CancelledAt       *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID;references:ID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
