package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartDTO is the cart view returned by every cart endpoint.
type CartDTO struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	Items           []CartItemDTO   `json:"items"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	HasPriceChanges bool            `json:"hasPriceChanges"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CartItemDTO is one line with its snapshot and resolved references. Product
// and Variant are nil when the catalog rows are gone.
type CartItemDTO struct {
	ID           uuid.UUID               `json:"id"`
	ProductID    uuid.UUID               `json:"productId"`
	VariantID    uuid.UUID               `json:"variantId"`
	Title        string                  `json:"title"`
	Quantity     int                     `json:"quantity"`
	Price        decimal.Decimal         `json:"price"`
	PriceChanged bool                    `json:"priceChanged"`
	Subtotal     decimal.Decimal         `json:"subtotal"`
	Product      *product.ProductSummary `json:"product,omitempty"`
	Variant      *product.VariantDTO     `json:"variant,omitempty"`
}

// PriceCheckItem compares one snapshot with the live catalog price.
type PriceCheckItem struct {
	ItemID        uuid.UUID        `json:"itemId"`
	SnapshotPrice decimal.Decimal  `json:"snapshotPrice"`
	LivePrice     *decimal.Decimal `json:"livePrice"`
	PriceChanged  bool             `json:"priceChanged"`
	Available     bool             `json:"available"`
}

// PriceCheckResult is the server-side price reconciliation report.
type PriceCheckResult struct {
	Items       []PriceCheckItem `json:"items"`
	HasMismatch bool             `json:"hasMismatch"`
}

func toDTO(cart *models.Cart, catalog map[uuid.UUID]models.Product) *CartDTO {
	dto := &CartDTO{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Items:      make([]CartItemDTO, 0, len(cart.Items)),
		TotalPrice: cart.TotalPrice,
		CreatedAt:  cart.CreatedAt,
		UpdatedAt:  cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		line := CartItemDTO{
			ID:           item.ID,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			Title:        item.Title,
			Quantity:     item.Quantity,
			Price:        item.Price,
			PriceChanged: item.PriceChanged,
			Subtotal:     item.Subtotal(),
		}
		if p, ok := catalog[item.ProductID]; ok {
			summary := product.SummaryFromModel(p)
			line.Product = &summary
			if v, ok := p.Variant(item.VariantID); ok {
				variant := product.VariantFromModel(v)
				line.Variant = &variant
			}
		}
		if item.PriceChanged {
			dto.HasPriceChanges = true
		}
		dto.Items = append(dto.Items, line)
	}
	return dto
}
