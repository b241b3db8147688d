package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type itemStore interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID) error
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) error
	ListItems(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.WishlistItem, int64, error)
}

type productLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type ServiceParams struct {
	WishlistRepo itemStore
	ProductRepo  productLookup
}

// Service manages a shopper's saved products. Saving is idempotent and only
// products a shopper could buy can be saved.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[Item], error)
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}

type service struct {
	items    itemStore
	products productLookup
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.WishlistRepo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	case params.ProductRepo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product repo is required")
	}
	return &service{items: params.WishlistRepo, products: params.ProductRepo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[Item], error) {
	if err := requireShopper(userID); err != nil {
		return nil, err
	}
	params = params.Normalize()
	rows, total, err := s.items.ListItems(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		if row.Product != nil {
			items = append(items, Item{Product: product.SummaryFromModel(*row.Product), SavedAt: row.CreatedAt})
		}
	}
	return &pagination.Page[Item]{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if err := requireShopper(userID); err != nil {
		return err
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	p, err := s.products.FindByID(ctx, productID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "Product not found")
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	case !p.Available():
		return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}

	if err := s.items.AddItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add wishlist item")
	}
	return nil
}

// Remove succeeds whether or not the product was saved.
func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if err := requireShopper(userID); err != nil {
		return err
	}
	if err := s.items.RemoveItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove wishlist item")
	}
	return nil
}

func requireShopper(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}
