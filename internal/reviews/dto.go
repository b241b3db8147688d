package reviews

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// SubmitInput is a shopper's new review.
type SubmitInput struct {
	ProductID uuid.UUID
	Rating    int
	Comment   string
}

// ListFilters narrows the moderation queue. A nil Approved lists both.
type ListFilters struct {
	Approved  *bool
	ProductID *uuid.UUID
	Search    string
}

// Author identifies the reviewer to moderators.
type Author struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
}

// ReviewDTO is the moderation view of a review.
type ReviewDTO struct {
	ID               uuid.UUID               `json:"id"`
	User             *Author                 `json:"user,omitempty"`
	Product          *product.ProductSummary `json:"product,omitempty"`
	Rating           int                     `json:"rating"`
	Comment          string                  `json:"comment"`
	VerifiedPurchase bool                    `json:"verifiedPurchase"`
	IsApproved       bool                    `json:"isApproved"`
	IsActive         bool                    `json:"isActive"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

// PublicReview is what shoppers see on a product page.
type PublicReview struct {
	ID               uuid.UUID `json:"id"`
	Author           string    `json:"author"`
	Rating           int       `json:"rating"`
	Comment          string    `json:"comment"`
	VerifiedPurchase bool      `json:"verifiedPurchase"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Stats feeds the moderation dashboard. AverageRating covers approved
// reviews only.
type Stats struct {
	Total         int64   `json:"total"`
	Pending       int64   `json:"pending"`
	Approved      int64   `json:"approved"`
	AverageRating float64 `json:"averageRating"`
}

func FromModel(r models.Review) ReviewDTO {
	dto := ReviewDTO{
		ID:               r.ID,
		Rating:           r.Rating,
		Comment:          r.Comment,
		VerifiedPurchase: r.VerifiedPurchase,
		IsApproved:       r.IsApproved,
		IsActive:         r.IsActive,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.User != nil {
		dto.User = &Author{ID: r.User.ID, FirstName: r.User.FirstName, LastName: r.User.LastName, Email: r.User.Email}
	}
	if r.Product != nil {
		summary := product.SummaryFromModel(*r.Product)
		dto.Product = &summary
	}
	return dto
}

func publicFromModel(r models.Review) PublicReview {
	return PublicReview{
		ID:               r.ID,
		Author:           displayName(r.User),
		Rating:           r.Rating,
		Comment:          r.Comment,
		VerifiedPurchase: r.VerifiedPurchase,
		CreatedAt:        r.CreatedAt,
	}
}

// displayName shortens the surname to an initial, "Mona S.".
func displayName(u *models.User) string {
	if u == nil {
		return "Anonymous"
	}
	first := strings.TrimSpace(u.FirstName)
	if first == "" {
		return "Anonymous"
	}
	last := strings.TrimSpace(u.LastName)
	if last == "" {
		return first
	}
	initial, _ := utf8.DecodeRuneInString(last)
	return first + " " + string(initial) + "."
}
