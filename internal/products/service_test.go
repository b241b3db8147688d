package product

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/storage"
)

type fakeImages struct {
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeImages) UploadProductImage(_ context.Context, productID uuid.UUID, r io.Reader, _ int64, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "https://cdn.example.com/products/" + productID.String() + "/img.png"
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImages) DeleteByURL(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

func newTestService(t *testing.T, images imageStore) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), dbpkg.FromGorm(conn), images, nil)
	require.NoError(t, err)
	return svc, conn
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCreateProductWithVariants(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Title:    "Classic Cotton T-Shirt",
		IsActive: true,
		Variants: []VariantInput{
			{Color: "White", Size: "M", Price: money("25.99"), QtyAvailable: 10},
			{Color: "Black", Size: "L", Price: money("27.50"), QtyAvailable: 3},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "classic-cotton-t-shirt", created.Slug)
	require.Len(t, created.Variants, 2)
	assert.True(t, created.Variants[0].Price.Equal(money("25.99")))

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Title:    "Another",
		Slug:     "classic-cotton-t-shirt",
		Variants: []VariantInput{{Price: money("1")}},
	})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Title: "No variants"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.CreateProduct(ctx, CreateProductInput{Title: "Free", Variants: []VariantInput{{Price: decimal.Zero}}})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	missing := uuid.New()
	_, err = svc.CreateProduct(ctx, CreateProductInput{Title: "Orphan", CategoryID: &missing, Variants: []VariantInput{{Price: money("5")}}})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestListProductsFilters(t *testing.T) {
	svc, conn := newTestService(t, nil)
	ctx := context.Background()

	dresses := models.Category{Name: "Dresses", Slug: "dresses"}
	require.NoError(t, conn.Create(&dresses).Error)

	summer := dbtest.SeedProduct(t, conn, "Summer Dress", dbtest.VariantSpec{Price: "40.00", Qty: 5})
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", summer.ID).Update("category_id", dresses.ID).Error)
	dbtest.SeedProduct(t, conn, "Winter Coat", dbtest.VariantSpec{Price: "120.00", Qty: 2})
	hidden := dbtest.SeedProduct(t, conn, "Hidden Dress", dbtest.VariantSpec{Price: "35.00", Qty: 1})
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", hidden.ID).Update("is_active", false).Error)

	res, err := svc.ListProducts(ctx, ListProductsInput{Filters: ListFilters{Search: "dress"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	assert.Equal(t, "Summer Dress", res.Products[0].Title)

	res, err = svc.ListProducts(ctx, ListProductsInput{Filters: ListFilters{CategorySlug: "dresses"}})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	require.NotNil(t, res.Products[0].Category)
	assert.Equal(t, "dresses", res.Products[0].Category.Slug)

	minPrice := money("100")
	res, err = svc.ListProducts(ctx, ListProductsInput{Filters: ListFilters{MinPrice: &minPrice}})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "Winter Coat", res.Products[0].Title)

	res, err = svc.ListProducts(ctx, ListProductsInput{Pagination: pagination.Params{Page: 1, Limit: 1}, IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
	assert.Len(t, res.Products, 1)

	maxPrice := money("10")
	_, err = svc.ListProducts(ctx, ListProductsInput{Filters: ListFilters{MinPrice: &minPrice, MaxPrice: &maxPrice}})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestGetBySlugHidesInactiveAndDeleted(t *testing.T) {
	svc, conn := newTestService(t, nil)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, conn, "Linen Shirt", dbtest.VariantSpec{Price: "30.00", Qty: 4})

	got, err := svc.GetBySlug(ctx, product.Slug)
	require.NoError(t, err)
	assert.Equal(t, product.ID, got.ID)

	_, err = svc.SetActive(ctx, product.ID, false)
	require.NoError(t, err)
	_, err = svc.GetBySlug(ctx, product.Slug)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.SetActive(ctx, product.ID, true)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProduct(ctx, product.ID))
	_, err = svc.GetBySlug(ctx, product.Slug)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	admin, err := svc.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, admin.IsDeleted)

	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(svc.DeleteProduct(ctx, uuid.New())))
}

func TestUpdateProductAndVariant(t *testing.T) {
	svc, conn := newTestService(t, nil)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, conn, "Denim Jacket", dbtest.VariantSpec{Price: "80.00", Qty: 4})

	title := "Denim Jacket Washed"
	images := []string{"a.png", "a.png", " b.png "}
	updated, err := svc.UpdateProduct(ctx, product.ID, UpdateProductInput{Title: &title, Images: &images})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, []string{"a.png", "b.png"}, updated.Images)
	assert.Equal(t, product.Slug, updated.Slug)

	price := money("85.00")
	qty := 9
	variant, err := svc.UpdateVariant(ctx, product.ID, product.Variants[0].ID, UpdateVariantInput{Price: &price, QtyAvailable: &qty})
	require.NoError(t, err)
	assert.True(t, variant.Price.Equal(price))
	assert.Equal(t, 9, dbtest.VariantQty(t, conn, product.Variants[0].ID))

	negative := -1
	_, err = svc.UpdateVariant(ctx, product.ID, product.Variants[0].ID, UpdateVariantInput{QtyAvailable: &negative})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.UpdateVariant(ctx, uuid.New(), product.Variants[0].ID, UpdateVariantInput{Price: &price})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	added, err := svc.AddVariant(ctx, product.ID, VariantInput{Color: "Blue", Size: "XL", Price: money("82.00"), QtyAvailable: 2})
	require.NoError(t, err)
	got, err := svc.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, got.Variants, 2)
	assert.Equal(t, added.ID, got.Variants[1].ID)
}

func TestUploadAndRemoveImage(t *testing.T) {
	images := &fakeImages{}
	svc, conn := newTestService(t, images)
	ctx := context.Background()
	product := dbtest.SeedProduct(t, conn, "Silk Scarf", dbtest.VariantSpec{Price: "19.00", Qty: 4})

	got, err := svc.UploadImage(ctx, product.ID, ImageUpload{Reader: strings.NewReader("png"), Size: 3, ContentType: "image/png"})
	require.NoError(t, err)
	require.Len(t, got.Images, 1)
	assert.Equal(t, images.uploaded[0], got.Images[0])

	got, err = svc.RemoveImage(ctx, product.ID, images.uploaded[0])
	require.NoError(t, err)
	assert.Empty(t, got.Images)
	assert.Equal(t, images.uploaded, images.deleted)

	images.err = storage.ErrUnsupportedMimeType
	_, err = svc.UploadImage(ctx, product.ID, ImageUpload{Reader: strings.NewReader("gif"), Size: 3, ContentType: "image/gif"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	images.err = errors.New("bucket offline")
	_, err = svc.UploadImage(ctx, product.ID, ImageUpload{Reader: strings.NewReader("png"), Size: 3, ContentType: "image/png"})
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestUploadImageWithoutStorage(t *testing.T) {
	svc, conn := newTestService(t, nil)
	product := dbtest.SeedProduct(t, conn, "Belt", dbtest.VariantSpec{Price: "12.00", Qty: 1})

	_, err := svc.UploadImage(context.Background(), product.ID, ImageUpload{Reader: strings.NewReader("x"), Size: 1, ContentType: "image/png"})
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}
