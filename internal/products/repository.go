package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
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

func withVariants(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// FindByID loads the product with its category and variants, including
// inactive or soft-deleted rows.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", withVariants).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindVisibleBySlug loads an active, non-deleted product by slug.
func (r *Repository) FindVisibleBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", withVariants).
		Where("slug = ? AND is_active = ? AND is_deleted = ?", slug, true, false).
		First(&product).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindManyByIDs loads products with variants keyed by id. Missing ids are
// simply absent from the result.
func (r *Repository) FindManyByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", withVariants).
		Where("id IN ?", ids).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

type listQuery struct {
	Filters       ListFilters
	Pagination    pagination.Params
	IncludeHidden bool
}

// List returns one page of products plus the total match count.
func (r *Repository) List(ctx context.Context, query listQuery) ([]models.Product, int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Product{})
	if !query.IncludeHidden {
		qb = qb.Where("products.is_active = ? AND products.is_deleted = ?", true, false)
	} else {
		qb = qb.Where("products.is_deleted = ?", false)
	}

	f := query.Filters
	if f.CategoryID != nil {
		qb = qb.Where("products.category_id = ?", *f.CategoryID)
	}
	if category := strings.TrimSpace(f.CategorySlug); category != "" {
		qb = qb.Where("products.category_id IN (SELECT id FROM categories WHERE slug = ?)", category)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		qb = qb.Where("LOWER(products.title) LIKE LOWER(?)", "%"+search+"%")
	}
	if f.MinPrice != nil {
		qb = qb.Where("EXISTS (SELECT 1 FROM product_variants pv WHERE pv.product_id = products.id AND pv.price >= ?)", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		qb = qb.Where("EXISTS (SELECT 1 FROM product_variants pv WHERE pv.product_id = products.id AND pv.price <= ?)", *f.MaxPrice)
	}

	var total int64
	if err := qb.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params := query.Pagination.Normalize()
	var rows []models.Product
	err := qb.
		Preload("Category").
		Preload("Variants", withVariants).
		Order("products.created_at DESC").
		Order("products.id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CreateProduct inserts the product row and its variants.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// UpdateProduct saves the product columns without touching variants.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error
}

// SetFlags updates is_active and is_deleted, reporting whether a row matched.
func (r *Repository) SetFlags(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(fields)
	return res.RowsAffected > 0, res.Error
}

// FindVariant loads a variant scoped to its product.
func (r *Repository) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&variant).
		Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

func (r *Repository) UpdateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Save(variant).Error
}

// ListLowStock returns variants of live products at or below their reorder
// point, lowest stock first.
func (r *Repository) ListLowStock(ctx context.Context, limit int) ([]LowStockVariant, error) {
	var rows []LowStockVariant
	err := r.db.WithContext(ctx).
		Table("product_variants pv").
		Select("pv.id AS variant_id, pv.product_id, p.title AS product_title, pv.color, pv.size, pv.qty_available, pv.reorder_point").
		Joins("JOIN products p ON p.id = pv.product_id").
		Where("p.is_deleted = ? AND pv.reorder_point > 0 AND pv.qty_available <= pv.reorder_point", false).
		Order("pv.qty_available ASC").
		Limit(limit).
		Scan(&rows).
		Error
	return rows, err
}

// LowStockVariant is the projection scanned by ListLowStock.
type LowStockVariant struct {
	VariantID    uuid.UUID
	ProductID    uuid.UUID
	ProductTitle string
	Color        string
	Size         string
	QtyAvailable int
	ReorderPoint int
}
