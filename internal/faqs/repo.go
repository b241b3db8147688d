package faqs

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository persists help entries. Deleted entries never come back from a
// read.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.FAQ{}).Where("is_deleted = ?", false)
}

func (r *Repository) Create(ctx context.Context, faq *models.FAQ) error {
	return r.db.WithContext(ctx).Create(faq).Error
}

func (r *Repository) Update(ctx context.Context, faq *models.FAQ) error {
	return r.db.WithContext(ctx).Save(faq).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.FAQ, error) {
	var faq models.FAQ
	if err := r.live(ctx).Where("id = ?", id).First(&faq).Error; err != nil {
		return nil, err
	}
	return &faq, nil
}

// List pages through entries. Storefront reads group by category in
// insertion order; admin reads show the newest first.
func (r *Repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.FAQ, int64, error) {
	qb := r.live(ctx)
	if filters.Active != nil {
		qb = qb.Where("is_active = ?", *filters.Active)
	}
	if category := strings.TrimSpace(filters.Category); category != "" {
		qb = qb.Where("LOWER(category) = LOWER(?)", category)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		like := "%" + search + "%"
		qb = qb.Where("LOWER(question) LIKE LOWER(?) OR LOWER(answer) LIKE LOWER(?) OR LOWER(category) LIKE LOWER(?)", like, like, like)
	}

	var total int64
	if err := qb.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Storefront {
		qb = qb.Order("category ASC").Order("created_at ASC")
	} else {
		qb = qb.Order("created_at DESC")
	}
	params = params.Normalize()
	var rows []models.FAQ
	err := qb.Order("id ASC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Categories lists the distinct categories of active entries.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := r.live(ctx).
		Where("is_active = ?", true).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &out).
		Error
	return out, err
}

func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error) {
	res := r.live(ctx).Where("id = ?", id).Updates(updates)
	return res.RowsAffected, res.Error
}

type statsRow struct {
	Total  int64
	Active int64
}

func (r *Repository) Stats(ctx context.Context) (total, active int64, err error) {
	var row statsRow
	err = r.live(ctx).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active").
		Scan(&row).
		Error
	return row.Total, row.Active, err
}
