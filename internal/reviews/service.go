package reviews

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const maxCommentRunes = 1000

type store interface {
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	HasDeliveredOrder(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ListPublic(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, int64, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Review, int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
	Stats(ctx context.Context) (total, approved, ratingSum int64, err error)
}

type productLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type ServiceParams struct {
	ReviewRepo  store
	ProductRepo productLookup
	Logger      *logger.Logger
}

// Service covers shopper submissions and admin moderation. New reviews wait
// for approval before they are public.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*ReviewDTO, error)
	ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[PublicReview], error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*pagination.Page[ReviewDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*ReviewDTO, error)
	Approve(ctx context.Context, id uuid.UUID) (*ReviewDTO, error)
	Reject(ctx context.Context, id uuid.UUID) (*ReviewDTO, error)
	ToggleStatus(ctx context.Context, id uuid.UUID) (*ReviewDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	reviews  store
	products productLookup
	logg     *logger.Logger
}

var (
	errReviewNotFound  = pkgerrors.New(pkgerrors.CodeNotFound, "Review not found")
	errProductNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
)

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.ReviewRepo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review repo is required")
	case params.ProductRepo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{reviews: params.ReviewRepo, products: params.ProductRepo, logg: params.Logger}, nil
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID, input SubmitInput) (*ReviewDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	comment, err := validateSubmission(input)
	if err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, input.ProductID); err != nil {
		return nil, err
	}

	verified, err := s.reviews.HasDeliveredOrder(ctx, userID, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase history")
	}
	review := &models.Review{
		UserID:           userID,
		ProductID:        input.ProductID,
		Rating:           input.Rating,
		Comment:          comment,
		VerifiedPurchase: verified,
		IsActive:         true,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_reviews_user_product") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "You have already reviewed this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"review_id":  review.ID.String(),
		"product_id": input.ProductID.String(),
	}), "review submitted")
	return s.Get(ctx, review.ID)
}

// ListForProduct only shows reviews of products a shopper can see.
func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[PublicReview], error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	params = params.Normalize()
	rows, total, err := s.reviews.ListPublic(ctx, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product reviews")
	}
	items := make([]PublicReview, 0, len(rows))
	for _, row := range rows {
		items = append(items, publicFromModel(row))
	}
	return &pagination.Page[PublicReview]{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*pagination.Page[ReviewDTO], error) {
	params = params.Normalize()
	rows, total, err := s.reviews.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	items := make([]ReviewDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, FromModel(row))
	}
	return &pagination.Page[ReviewDTO]{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	review, err := s.reviews.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errReviewNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
	}
	dto := FromModel(*review)
	return &dto, nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	return s.moderate(ctx, id, "approve", map[string]any{"is_approved": true})
}

func (s *service) Reject(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	return s.moderate(ctx, id, "reject", map[string]any{"is_approved": false})
}

func (s *service) ToggleStatus(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	return s.moderate(ctx, id, "toggle_status", map[string]any{"is_active": gorm.Expr("NOT is_active")})
}

// Delete hides the review for good. Deleting twice reports not found.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.apply(ctx, id, "delete", map[string]any{"is_deleted": true})
}

func (s *service) moderate(ctx context.Context, id uuid.UUID, action string, updates map[string]any) (*ReviewDTO, error) {
	if err := s.apply(ctx, id, action, updates); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) apply(ctx context.Context, id uuid.UUID, action string, updates map[string]any) error {
	affected, err := s.reviews.UpdateFields(ctx, id, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update review")
	}
	if affected == 0 {
		return errReviewNotFound
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"review_id": id.String(), "action": action}), "review moderated")
	return nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	total, approved, ratingSum, err := s.reviews.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "review stats")
	}
	stats := &Stats{Total: total, Approved: approved, Pending: total - approved}
	if approved > 0 {
		stats.AverageRating, _ = decimal.NewFromInt(ratingSum).
			Div(decimal.NewFromInt(approved)).
			Round(2).
			Float64()
	}
	return stats, nil
}

func (s *service) requireProduct(ctx context.Context, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	p, err := s.products.FindByID(ctx, productID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errProductNotFound
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	case !p.Available():
		return errProductNotFound
	}
	return nil
}

func validateSubmission(input SubmitInput) (string, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(input.Comment)
	if comment == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Comment is required")
	}
	if utf8.RuneCountInString(comment) > maxCommentRunes {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "Comment must be at most %d characters", maxCommentRunes)
	}
	return comment, nil
}
