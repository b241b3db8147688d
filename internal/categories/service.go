package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/slug"
)

type repository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountLiveProducts(ctx context.Context, id uuid.UUID) (int64, error)
	CountChildren(ctx context.Context, id uuid.UUID) (int64, error)
}

// Service manages catalog categories.
type Service interface {
	List(ctx context.Context) ([]CategoryDTO, error)
	Resolve(ctx context.Context, slug string) (*CategoryDTO, error)
	Create(ctx context.Context, input CategoryInput) (*CategoryDTO, error)
	Update(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryInput is the admin payload for create and update. An empty Slug is
// derived from Name.
type CategoryInput struct {
	Name     string
	Slug     string
	ParentID *uuid.UUID
}

// CategoryDTO is the public category shape.
type CategoryDTO struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Slug      string     `json:"slug"`
	ParentID  *uuid.UUID `json:"parentId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// FromModel maps a category row to its DTO.
func FromModel(c models.Category) CategoryDTO {
	return CategoryDTO{
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		ParentID:  c.ParentID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type service struct {
	repo repository
}

// NewService builds the category service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

// Resolve looks a category up by slug for catalog filtering.
func (s *service) Resolve(ctx context.Context, value string) (*CategoryDTO, error) {
	category, err := s.repo.FindBySlug(ctx, strings.TrimSpace(value))
	if err != nil {
		return nil, notFoundOr(err, "load category")
	}
	dto := FromModel(*category)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CategoryInput) (*CategoryDTO, error) {
	category := &models.Category{}
	if err := s.apply(ctx, category, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, conflictOr(err)
	}
	dto := FromModel(*category)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load category")
	}
	if input.ParentID != nil && *input.ParentID == id {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be its own parent")
	}
	if err := s.apply(ctx, category, input); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, conflictOr(err)
	}
	dto := FromModel(*category)
	return &dto, nil
}

// Delete refuses to drop categories that still hold products or children.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundOr(err, "load category")
	}
	products, err := s.repo.CountLiveProducts(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category products")
	}
	if products > 0 {
		return pkgerrors.Newf(pkgerrors.CodeConflict, "category still has %d products", products)
	}
	children, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count subcategories")
	}
	if children > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "category has subcategories")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	return nil
}

func (s *service) apply(ctx context.Context, category *models.Category, input CategoryInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	value := strings.TrimSpace(input.Slug)
	if value == "" {
		value = slug.Make(name)
	}
	if !slug.Valid(value) {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug must be lowercase words separated by dashes")
	}
	if input.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, *input.ParentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "parent category not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent category")
		}
	}
	category.Name = name
	category.Slug = value
	category.ParentID = input.ParentID
	return nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Category not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func conflictOr(err error) error {
	if dbpkg.IsUniqueViolation(err, "ux_categories_slug") {
		return pkgerrors.New(pkgerrors.CodeConflict, "category slug already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save category")
}
