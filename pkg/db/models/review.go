package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a shopper's rating of a product. Reviews start unapproved and
// only approved, active, undeleted ones are shown on the storefront. A
// shopper holds at most one review per product, deleted ones included.
type Review struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_reviews_user_product"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_reviews_user_product;index:reviews_product_id_idx"`
	Rating           int       `gorm:"column:rating;not null"`
	Comment          string    `gorm:"column:comment;not null"`
	VerifiedPurchase bool      `gorm:"column:verified_purchase;not null"`
	IsApproved       bool      `gorm:"column:is_approved;not null"`
	IsActive         bool      `gorm:"column:is_active;not null"`
	IsDeleted        bool      `gorm:"column:is_deleted;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`

	User    *User    `gorm:"foreignKey:UserID;references:ID"`
	Product *Product `gorm:"foreignKey:ProductID;references:ID"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// Public reports whether shoppers can see the review.
func (r Review) Public() bool {
	return r.IsApproved && r.IsActive && !r.IsDeleted
}
