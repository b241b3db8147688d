package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem keeps the title and price observed when the item was added.
type CartItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID       uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID    uuid.UUID       `gorm:"column:variant_id;type:uuid;not null"`
	Quantity     int             `gorm:"column:quantity;not null"`
	Title        string          `gorm:"column:title;not null"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	PriceChanged bool            `gorm:"column:price_changed;not null;default:false"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
