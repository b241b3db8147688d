package reviews

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists product reviews. Soft-deleted rows are invisible to
// every read.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Review{}).Where("reviews.is_deleted = ?", false)
}

func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// FindByID loads a review with its author and product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.live(ctx).
		Preload("User").
		Preload("Product").
		Where("reviews.id = ?", id).
		First(&review).
		Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// HasDeliveredOrder reports whether the user received the product in any
// delivered order.
func (r *Repository) HasDeliveredOrder(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Joins("JOIN orders o ON o.id = order_items.order_id").
		Where("o.user_id = ? AND o.status = ? AND order_items.product_id = ?", userID, enums.OrderStatusDelivered, productID).
		Count(&count).
		Error
	return count > 0, err
}

// ListPublic returns approved, active reviews for a product, newest first.
func (r *Repository) ListPublic(ctx context.Context, productID uuid.UUID, params pagination.Params) ([]models.Review, int64, error) {
	qb := r.live(ctx).Where("reviews.product_id = ? AND reviews.is_approved = ? AND reviews.is_active = ?", productID, true, true)
	return r.page(qb.Preload("User"), params)
}

// List serves the moderation queue.
func (r *Repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Review, int64, error) {
	qb := r.live(ctx)
	if filters.Approved != nil {
		qb = qb.Where("reviews.is_approved = ?", *filters.Approved)
	}
	if filters.ProductID != nil {
		qb = qb.Where("reviews.product_id = ?", *filters.ProductID)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		like := "%" + search + "%"
		qb = qb.Where(
			"LOWER(reviews.comment) LIKE LOWER(?)"+
				" OR EXISTS (SELECT 1 FROM products p WHERE p.id = reviews.product_id AND LOWER(p.title) LIKE LOWER(?))"+
				" OR EXISTS (SELECT 1 FROM users u WHERE u.id = reviews.user_id AND (LOWER(u.email) LIKE LOWER(?) OR LOWER(u.first_name || ' ' || u.last_name) LIKE LOWER(?)))",
			like, like, like, like,
		)
	}
	return r.page(qb.Preload("User").Preload("Product"), params)
}

func (r *Repository) page(qb *gorm.DB, params pagination.Params) ([]models.Review, int64, error) {
	var total int64
	if err := qb.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params = params.Normalize()
	var rows []models.Review
	err := qb.
		Order("reviews.created_at DESC").
		Order("reviews.id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateFields applies updates to a live review and reports how many rows
// matched.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.live(ctx).Where("reviews.id = ?", id).Updates(updates)
	return res.RowsAffected, res.Error
}

type statsRow struct {
	Total     int64
	Approved  int64
	RatingSum int64
}

// Stats counts live reviews. RatingSum only covers approved ones.
func (r *Repository) Stats(ctx context.Context) (total, approved, ratingSum int64, err error) {
	var row statsRow
	err = r.live(ctx).
		Select("COUNT(*) AS total," +
			" COALESCE(SUM(CASE WHEN is_approved THEN 1 ELSE 0 END), 0) AS approved," +
			" COALESCE(SUM(CASE WHEN is_approved THEN rating ELSE 0 END), 0) AS rating_sum").
		Scan(&row).
		Error
	return row.Total, row.Approved, row.RatingSum, err
}
