package product

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/slug"
	"github.com/angelmondragon/storefront-backend/pkg/storage"
)

// Service exposes catalog reads and admin product management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*ProductDTO, error)
	AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*VariantDTO, error)
	UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input UpdateVariantInput) (*VariantDTO, error)
	UploadImage(ctx context.Context, productID uuid.UUID, file ImageUpload) (*ProductDTO, error)
	RemoveImage(ctx context.Context, productID uuid.UUID, url string) (*ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Title       string
	Slug        string
	Description string
	CategoryID  *uuid.UUID
	Attributes  map[string]string
	IsActive    bool
	Variants    []VariantInput
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Title       *string
	Slug        *string
	Description *string
	CategoryID  *uuid.UUID
	Attributes  *map[string]string
	Images      *[]string
}

// VariantInput describes a new variant.
type VariantInput struct {
	Color        string
	Size         string
	Material     string
	Style        string
	Price        decimal.Decimal
	QtyAvailable int
	ReorderPoint int
}

// UpdateVariantInput holds optional variant changes.
type UpdateVariantInput struct {
	Price        *decimal.Decimal
	QtyAvailable *int
	ReorderPoint *int
}

// ImageUpload is one multipart file destined for object storage.
type ImageUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type imageStore interface {
	UploadProductImage(ctx context.Context, productID uuid.UUID, r io.Reader, size int64, contentType string) (string, error)
	DeleteByURL(ctx context.Context, url string) error
}

type service struct {
	repo   *Repository
	tx     txRunner
	images imageStore
	logg   *logger.Logger
}

// NewService builds the catalog service. images may be nil when object
// storage is not configured; uploads then fail with DEPENDENCY_ERROR.
func NewService(repo *Repository, tx txRunner, images imageStore, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, images: images, logg: logg}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	f := input.Filters
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minPrice cannot exceed maxPrice")
	}
	rows, total, err := s.repo.List(ctx, listQuery{
		Filters:       f,
		Pagination:    input.Pagination,
		IncludeHidden: input.IncludeInactive,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := &ProductListResult{Products: make([]ProductDTO, 0, len(rows)), Total: total}
	for _, row := range rows {
		out.Products = append(out.Products, FromModel(row))
	}
	return out, nil
}

func (s *service) GetBySlug(ctx context.Context, value string) (*ProductDTO, error) {
	product, err := s.repo.FindVisibleBySlug(ctx, strings.TrimSpace(value))
	if err != nil {
		return nil, productNotFoundOr(err)
	}
	dto := FromModel(*product)
	return &dto, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, productNotFoundOr(err)
	}
	dto := FromModel(*product)
	return &dto, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	productSlug, err := resolveSlug(input.Slug, title)
	if err != nil {
		return nil, err
	}
	if len(input.Variants) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one variant is required")
	}

	product := &models.Product{
		Title:       title,
		Slug:        productSlug,
		Description: strings.TrimSpace(input.Description),
		CategoryID:  input.CategoryID,
		Images:      []string{},
		Attributes:  input.Attributes,
		IsActive:    input.IsActive,
	}
	if product.Attributes == nil {
		product.Attributes = map[string]string{}
	}
	for i, v := range input.Variants {
		if err := validateVariant(v); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("variants[%d]: %s", i, err.Error()))
		}
		product.Variants = append(product.Variants, variantModel(v))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := ensureCategory(ctx, tx, input.CategoryID); err != nil {
			return err
		}
		if err := repo.CreateProduct(ctx, product); err != nil {
			return productConflictOr(err, "create product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindByID(ctx, id)
		if err != nil {
			return productNotFoundOr(err)
		}
		if err := applyUpdateToProduct(product, input); err != nil {
			return err
		}
		if input.CategoryID != nil {
			if err := ensureCategory(ctx, tx, input.CategoryID); err != nil {
				return err
			}
			product.Category = nil
		}
		if err := repo.UpdateProduct(ctx, product); err != nil {
			return productConflictOr(err, "update product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// DeleteProduct soft-deletes; order history keeps pointing at the row.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.SetFlags(ctx, id, map[string]any{"is_deleted": true, "is_active": false})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}
	return nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*ProductDTO, error) {
	ok, err := s.repo.SetFlags(ctx, id, map[string]any{"is_active": active})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product status")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}
	return s.GetByID(ctx, id)
}

func (s *service) AddVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*VariantDTO, error) {
	if err := validateVariant(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		return nil, productNotFoundOr(err)
	}
	variant := variantModel(input)
	variant.ProductID = productID
	if err := s.repo.CreateVariant(ctx, &variant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create variant")
	}
	dto := VariantFromModel(variant)
	return &dto, nil
}

func (s *service) UpdateVariant(ctx context.Context, productID, variantID uuid.UUID, input UpdateVariantInput) (*VariantDTO, error) {
	variant, err := s.repo.FindVariant(ctx, productID, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	if input.Price != nil {
		variant.Price = *input.Price
	}
	if input.QtyAvailable != nil {
		variant.QtyAvailable = *input.QtyAvailable
	}
	if input.ReorderPoint != nil {
		variant.ReorderPoint = *input.ReorderPoint
	}
	if err := validateVariant(VariantInput{Price: variant.Price, QtyAvailable: variant.QtyAvailable, ReorderPoint: variant.ReorderPoint}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	if err := s.repo.UpdateVariant(ctx, variant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant")
	}
	dto := VariantFromModel(*variant)
	return &dto, nil
}

// UploadImage stores the file and appends its URL to the product images.
func (s *service) UploadImage(ctx context.Context, productID uuid.UUID, file ImageUpload) (*ProductDTO, error) {
	if s.images == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image storage is not configured")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, productNotFoundOr(err)
	}

	url, err := s.images.UploadProductImage(ctx, productID, file.Reader, file.Size, file.ContentType)
	switch {
	case errors.Is(err, storage.ErrUnsupportedMimeType), errors.Is(err, storage.ErrTooLarge):
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	case errors.Is(err, storage.ErrNotConfigured):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "image storage is not configured")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
	}

	product.Images = append(product.Images, url)
	product.Category = nil
	product.Variants = nil
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		if cleanupErr := s.images.DeleteByURL(ctx, url); cleanupErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "url", url), "orphaned product image after failed save")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product image")
	}
	return s.GetByID(ctx, productID)
}

// RemoveImage drops url from the product and deletes the stored object.
func (s *service) RemoveImage(ctx context.Context, productID uuid.UUID, url string) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, productNotFoundOr(err)
	}
	kept := make([]string, 0, len(product.Images))
	for _, existing := range product.Images {
		if existing != url {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(product.Images) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Image not found")
	}
	product.Images = kept
	product.Category = nil
	product.Variants = nil
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product images")
	}
	if s.images != nil {
		if err := s.images.DeleteByURL(ctx, url); err != nil && !errors.Is(err, storage.ErrNotConfigured) {
			s.logg.Error(s.logg.WithField(ctx, "url", url), "delete product image", err)
		}
	}
	return s.GetByID(ctx, productID)
}

func applyUpdateToProduct(product *models.Product, input UpdateProductInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		product.Title = title
	}
	if input.Slug != nil {
		value, err := resolveSlug(*input.Slug, product.Title)
		if err != nil {
			return err
		}
		product.Slug = value
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.CategoryID != nil {
		id := *input.CategoryID
		product.CategoryID = &id
	}
	if input.Attributes != nil {
		product.Attributes = *input.Attributes
	}
	if input.Images != nil {
		product.Images = dedupe(*input.Images)
	}
	return nil
}

func resolveSlug(value, title string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = slug.Make(title)
	}
	if !slug.Valid(value) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "slug must be lowercase words separated by dashes")
	}
	return value, nil
}

func validateVariant(v VariantInput) error {
	if !v.Price.IsPositive() {
		return errors.New("price must be greater than zero")
	}
	if v.QtyAvailable < 0 {
		return errors.New("qtyAvailable cannot be negative")
	}
	if v.ReorderPoint < 0 {
		return errors.New("reorderPoint cannot be negative")
	}
	return nil
}

func variantModel(v VariantInput) models.ProductVariant {
	return models.ProductVariant{
		Color:        strings.TrimSpace(v.Color),
		Size:         strings.TrimSpace(v.Size),
		Material:     strings.TrimSpace(v.Material),
		Style:        strings.TrimSpace(v.Style),
		Price:        v.Price.Round(2),
		QtyAvailable: v.QtyAvailable,
		ReorderPoint: v.ReorderPoint,
	}
}

func ensureCategory(ctx context.Context, tx *gorm.DB, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	var count int64
	if err := tx.WithContext(ctx).Model(&models.Category{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "category not found")
	}
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func productNotFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}

func productConflictOr(err error, msg string) error {
	if dbpkg.IsUniqueViolation(err, "ux_products_slug") {
		return pkgerrors.New(pkgerrors.CodeConflict, "product slug already exists")
	}
	return pkgerrors.PassThrough(err, pkgerrors.CodeDependency, msg)
}
