package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FAQ is a storefront help entry grouped by a free-form category.
type FAQ struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Question  string    `gorm:"column:question;not null"`
	Answer    string    `gorm:"column:answer;not null"`
	Category  string    `gorm:"column:category;not null;index:faqs_category_idx"`
	IsActive  bool      `gorm:"column:is_active;not null"`
	IsDeleted bool      `gorm:"column:is_deleted;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (FAQ) TableName() string { return "faqs" }

func (f *FAQ) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
