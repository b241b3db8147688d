package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductVariant carries the price and stock of one product configuration.
type ProductVariant struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Color        string          `gorm:"column:color;not null;default:''"`
	Size         string          `gorm:"column:size;not null;default:''"`
	Material     string          `gorm:"column:material;not null;default:''"`
	Style        string          `gorm:"column:style;not null;default:''"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	QtyAvailable int             `gorm:"column:qty_available;not null;default:0"`
	ReorderPoint int             `gorm:"column:reorder_point;not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}
