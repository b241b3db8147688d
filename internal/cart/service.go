package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-backend/internal/products"
	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the cart aggregate.
type Service interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	ConfirmPriceChange(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	ClearTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
	PriceCheck(ctx context.Context, userID uuid.UUID) (*PriceCheckResult, error)
}

// AddItemInput identifies the variant and how many units to add.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	Quantity  int
}

type service struct {
	repo    CartRepository
	tx      txRunner
	catalog *product.Repository
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, catalog *product.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, tx: tx, catalog: catalog}, nil
}

var (
	errCartNotFound    = pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found")
	errItemNotFound    = pkgerrors.New(pkgerrors.CodeNotFound, "Item not found in cart")
	errVariantNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "Product variant not found")
)

func (s *service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	if err := s.ensureCart(ctx, userID); err != nil {
		return nil, err
	}
	return s.view(ctx, userID)
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	if input.ProductID == uuid.Nil || input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId and variantId are required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be at least 1")
	}
	if err := s.ensureCart(ctx, userID); err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(tx *gorm.DB, repo CartRepository, cart *models.Cart) error {
		p, err := s.catalog.WithTx(tx).FindByID(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found or unavailable")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !p.Available() {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found or unavailable")
		}
		variant, ok := p.Variant(input.VariantID)
		if !ok {
			return errVariantNotFound
		}
		if input.Quantity > variant.QtyAvailable {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "Only %d items available in stock", variant.QtyAvailable)
		}

		for i := range cart.Items {
			item := &cart.Items[i]
			if item.ProductID != input.ProductID || item.VariantID != input.VariantID {
				continue
			}
			merged := item.Quantity + input.Quantity
			if merged > variant.QtyAvailable {
				return pkgerrors.Newf(pkgerrors.CodeValidation, "Cannot add %d more. Only %d more available",
					input.Quantity, max(variant.QtyAvailable-item.Quantity, 0))
			}
			item.Quantity = merged
			markPriceDrift(item, variant.Price)
			return wrapDependency(repo.SaveItem(ctx, item), "save cart item")
		}

		item := models.CartItem{
			CartID:    cart.ID,
			ProductID: p.ID,
			VariantID: variant.ID,
			Quantity:  input.Quantity,
			Title:     p.Title,
			Price:     variant.Price,
		}
		if err := repo.CreateItem(ctx, &item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
		}
		cart.Items = append(cart.Items, item)
		return nil
	})
}

func (s *service) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be at least 1")
	}
	return s.mutate(ctx, userID, func(tx *gorm.DB, repo CartRepository, cart *models.Cart) error {
		item := findItem(cart, itemID)
		if item == nil {
			return errItemNotFound
		}
		variant, err := s.liveVariant(ctx, tx, *item)
		if err != nil {
			return err
		}
		if quantity > variant.QtyAvailable {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "Only %d items available in stock", variant.QtyAvailable)
		}
		item.Quantity = quantity
		markPriceDrift(item, variant.Price)
		return wrapDependency(repo.SaveItem(ctx, item), "save cart item")
	})
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, userID, func(_ *gorm.DB, repo CartRepository, cart *models.Cart) error {
		kept := cart.Items[:0:0]
		found := false
		for _, item := range cart.Items {
			if item.ID == itemID {
				found = true
				continue
			}
			kept = append(kept, item)
		}
		if !found {
			return errItemNotFound
		}
		cart.Items = kept
		return wrapDependency(repo.DeleteItem(ctx, cart.ID, itemID), "delete cart item")
	})
}

// ConfirmPriceChange accepts the live price as the item's new snapshot.
func (s *service) ConfirmPriceChange(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, userID, func(tx *gorm.DB, repo CartRepository, cart *models.Cart) error {
		item := findItem(cart, itemID)
		if item == nil {
			return errItemNotFound
		}
		variant, err := s.liveVariant(ctx, tx, *item)
		if err != nil {
			return err
		}
		item.Price = variant.Price
		item.PriceChanged = false
		return wrapDependency(repo.SaveItem(ctx, item), "save cart item")
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	return s.mutate(ctx, userID, func(_ *gorm.DB, repo CartRepository, cart *models.Cart) error {
		cart.Items = nil
		return wrapDependency(repo.DeleteItems(ctx, cart.ID), "clear cart")
	})
}

// ClearTx empties a cart inside the caller's transaction. Checkout holds the
// cart lock already.
func (s *service) ClearTx(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	if err := repo.DeleteItems(ctx, cartID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	if err := repo.UpdateTotal(ctx, cartID, decimal.Zero); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset cart total")
	}
	return nil
}

// PriceCheck compares every snapshot with the live catalog. A missing cart
// reports no items.
func (s *service) PriceCheck(ctx context.Context, userID uuid.UUID) (*PriceCheckResult, error) {
	result := &PriceCheckResult{Items: []PriceCheckItem{}}
	cart, err := s.repo.FindByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	catalog, err := s.catalog.FindManyByIDs(ctx, productIDs(cart))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	for _, item := range cart.Items {
		check := PriceCheckItem{
			ItemID:        item.ID,
			SnapshotPrice: item.Price,
			PriceChanged:  item.PriceChanged,
		}
		if p, ok := catalog[item.ProductID]; ok {
			if v, ok := p.Variant(item.VariantID); ok {
				live := v.Price
				check.LivePrice = &live
				check.PriceChanged = check.PriceChanged || !live.Equal(item.Price)
				check.Available = p.Available() && v.QtyAvailable >= item.Quantity
			}
		}
		if check.PriceChanged {
			result.HasMismatch = true
		}
		result.Items = append(result.Items, check)
	}
	return result, nil
}

type mutation func(tx *gorm.DB, repo CartRepository, cart *models.Cart) error

// mutate locks the user's cart, applies fn, and persists the recomputed total
// in the same transaction.
func (s *service) mutate(ctx context.Context, userID uuid.UUID, fn mutation) (*CartDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.LockByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errCartNotFound
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}
		if err := fn(tx, repo, cart); err != nil {
			return err
		}
		cart.RecomputeTotal()
		return wrapDependency(repo.UpdateTotal(ctx, cart.ID, cart.TotalPrice), "update cart total")
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, userID)
}

func (s *service) ensureCart(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	_, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.repo.Create(ctx, &models.Cart{UserID: userID}); err != nil {
		// a concurrent request created it first
		if dbpkg.IsUniqueViolation(err, "ux_carts_user_id") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return nil
}

func (s *service) view(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errCartNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	catalog, err := s.catalog.FindManyByIDs(ctx, productIDs(cart))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	return toDTO(cart, catalog), nil
}

func (s *service) liveVariant(ctx context.Context, tx *gorm.DB, item models.CartItem) (*models.ProductVariant, error) {
	variant, err := s.catalog.WithTx(tx).FindVariant(ctx, item.ProductID, item.VariantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errVariantNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	return variant, nil
}

// markPriceDrift only ever raises the flag. ConfirmPriceChange is the one
// place that lowers it.
func markPriceDrift(item *models.CartItem, live decimal.Decimal) {
	if !item.Price.Equal(live) {
		item.PriceChanged = true
	}
}

func findItem(cart *models.Cart, itemID uuid.UUID) *models.CartItem {
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return &cart.Items[i]
		}
	}
	return nil
}

func productIDs(cart *models.Cart) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(cart.Items))
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func wrapDependency(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
