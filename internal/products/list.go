package product

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ListFilters describe the supported filter knobs for the browse endpoint.
type ListFilters struct {
	CategorySlug string
	CategoryID   *uuid.UUID
	Search       string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
}

// ListProductsInput captures the inputs needed to paginate and filter products.
type ListProductsInput struct {
	Filters    ListFilters
	Pagination pagination.Params
	// IncludeInactive is set on admin listings.
	IncludeInactive bool
}
