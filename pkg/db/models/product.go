package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog entry; purchasable configurations live in Variants.
type Product struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Title       string            `gorm:"column:title;not null"`
	Slug        string            `gorm:"column:slug;not null;uniqueIndex:ux_products_slug"`
	Description string            `gorm:"column:description;not null;default:''"`
	CategoryID  *uuid.UUID        `gorm:"column:category_id;type:uuid;index"`
	Images      []string          `gorm:"column:images;type:jsonb;serializer:json"`
	Attributes  map[string]string `gorm:"column:attributes;type:jsonb;serializer:json"`
	IsActive    bool              `gorm:"column:is_active;not null;default:true"`
	IsDeleted   bool              `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Category *Category       `gorm:"foreignKey:CategoryID;references:ID"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID;references:ID"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Available reports whether shoppers may buy the product at all.
func (p Product) Available() bool {
	return p.IsActive && !p.IsDeleted
}

// Variant returns the variant with the given id, if it belongs to the product.
func (p Product) Variant(id uuid.UUID) (ProductVariant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return ProductVariant{}, false
}
