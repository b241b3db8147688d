package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	Category    *CategorySummary  `json:"category,omitempty"`
	Images      []string          `json:"images"`
	Attributes  map[string]string `json:"attributes"`
	Variants    []VariantDTO      `json:"variants"`
	IsActive    bool              `json:"isActive"`
	IsDeleted   bool              `json:"isDeleted"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// CategorySummary is the embedded category reference.
type CategorySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// VariantDTO exposes price and stock for one configuration.
type VariantDTO struct {
	ID           uuid.UUID       `json:"id"`
	Color        string          `json:"color,omitempty"`
	Size         string          `json:"size,omitempty"`
	Material     string          `json:"material,omitempty"`
	Style        string          `json:"style,omitempty"`
	Price        decimal.Decimal `json:"price"`
	QtyAvailable int             `json:"qtyAvailable"`
	ReorderPoint int             `json:"reorderPoint"`
}

// ProductSummary is the trimmed product view embedded in carts and wishlists.
type ProductSummary struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Slug     string    `json:"slug"`
	Image    *string   `json:"image,omitempty"`
	IsActive bool      `json:"isActive"`
}

// ProductListResult is one page of catalog products.
type ProductListResult struct {
	Products []ProductDTO
	Total    int64
}

// FromModel maps a product row with preloaded relations to its DTO.
func FromModel(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		Images:      p.Images,
		Attributes:  p.Attributes,
		Variants:    make([]VariantDTO, 0, len(p.Variants)),
		IsActive:    p.IsActive,
		IsDeleted:   p.IsDeleted,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if dto.Images == nil {
		dto.Images = []string{}
	}
	if dto.Attributes == nil {
		dto.Attributes = map[string]string{}
	}
	if p.Category != nil {
		dto.Category = &CategorySummary{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
	}
	for _, v := range p.Variants {
		dto.Variants = append(dto.Variants, VariantFromModel(v))
	}
	return dto
}

func VariantFromModel(v models.ProductVariant) VariantDTO {
	return VariantDTO{
		ID:           v.ID,
		Color:        v.Color,
		Size:         v.Size,
		Material:     v.Material,
		Style:        v.Style,
		Price:        v.Price,
		QtyAvailable: v.QtyAvailable,
		ReorderPoint: v.ReorderPoint,
	}
}

// SummaryFromModel builds the compact product reference.
func SummaryFromModel(p models.Product) ProductSummary {
	summary := ProductSummary{
		ID:       p.ID,
		Title:    p.Title,
		Slug:     p.Slug,
		IsActive: p.Available(),
	}
	if len(p.Images) > 0 {
		image := p.Images[0]
		summary.Image = &image
	}
	return summary
}
