package wishlist

import (
	"time"

	product "github.com/angelmondragon/storefront-backend/internal/products"
)

// Item is one saved product as the storefront renders it.
type Item struct {
	Product product.ProductSummary `json:"product"`
	SavedAt time.Time              `json:"createdAt"`
}
