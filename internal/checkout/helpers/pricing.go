package helpers

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// PriceMismatch reports a cart line whose snapshot no longer matches the catalog.
type PriceMismatch struct {
	ItemID        uuid.UUID       `json:"itemId"`
	Title         string          `json:"title"`
	SnapshotPrice decimal.Decimal `json:"snapshotPrice"`
	LivePrice     decimal.Decimal `json:"livePrice"`
}

// DetectPriceMismatch returns a mismatch when the item is flagged or its
// snapshot differs from live.
func DetectPriceMismatch(item models.CartItem, live decimal.Decimal) (PriceMismatch, bool) {
	if !item.PriceChanged && item.Price.Equal(live) {
		return PriceMismatch{}, false
	}
	return PriceMismatch{
		ItemID:        item.ID,
		Title:         item.Title,
		SnapshotPrice: item.Price,
		LivePrice:     live,
	}, true
}

// OrderTotal sums price x quantity over order lines.
func OrderTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}
