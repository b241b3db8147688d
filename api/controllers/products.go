package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const imageFormField = "image"

type variantRequest struct {
	Color        string          `json:"color" validate:"max=50"`
	Size         string          `json:"size" validate:"max=50"`
	Material     string          `json:"material" validate:"max=50"`
	Style        string          `json:"style" validate:"max=50"`
	Price        decimal.Decimal `json:"price" validate:"gt=0"`
	QtyAvailable int             `json:"qtyAvailable" validate:"min=0"`
	ReorderPoint int             `json:"reorderPoint" validate:"min=0"`
}

func (v variantRequest) toInput() product.VariantInput {
	return product.VariantInput{
		Color:        strings.TrimSpace(v.Color),
		Size:         strings.TrimSpace(v.Size),
		Material:     strings.TrimSpace(v.Material),
		Style:        strings.TrimSpace(v.Style),
		Price:        v.Price,
		QtyAvailable: v.QtyAvailable,
		ReorderPoint: v.ReorderPoint,
	}
}

type createProductRequest struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Slug        string            `json:"slug" validate:"omitempty,max=200"`
	Description string            `json:"description"`
	CategoryID  *string           `json:"categoryId" validate:"omitempty,uuid"`
	Attributes  map[string]string `json:"attributes"`
	IsActive    *bool             `json:"isActive"`
	Variants    []variantRequest  `json:"variants" validate:"required,min=1,dive"`
}

func (r createProductRequest) toInput() product.CreateProductInput {
	input := product.CreateProductInput{
		Title:       strings.TrimSpace(r.Title),
		Slug:        strings.TrimSpace(r.Slug),
		Description: r.Description,
		CategoryID:  optionalUUID(r.CategoryID),
		Attributes:  r.Attributes,
		IsActive:    r.IsActive == nil || *r.IsActive,
		Variants:    make([]product.VariantInput, 0, len(r.Variants)),
	}
	for _, v := range r.Variants {
		input.Variants = append(input.Variants, v.toInput())
	}
	return input
}

type updateProductRequest struct {
	Title       *string            `json:"title" validate:"omitempty,max=200"`
	Slug        *string            `json:"slug" validate:"omitempty,max=200"`
	Description *string            `json:"description"`
	CategoryID  *string            `json:"categoryId" validate:"omitempty,uuid"`
	Attributes  *map[string]string `json:"attributes"`
	Images      *[]string          `json:"images" validate:"omitempty,dive,url"`
}

type updateVariantRequest struct {
	Price        *decimal.Decimal `json:"price" validate:"omitempty,gt=0"`
	QtyAvailable *int             `json:"qtyAvailable" validate:"omitempty,min=0"`
	ReorderPoint *int             `json:"reorderPoint" validate:"omitempty,min=0"`
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type removeImageRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ProductsList serves the public catalog.
func ProductsList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return listProducts(svc, logg, false)
}

// AdminProductsList includes inactive products.
func AdminProductsList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return listProducts(svc, logg, true)
}

func listProducts(svc product.Service, logg *logger.Logger, includeInactive bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := parseProductFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListProducts(r.Context(), product.ListProductsInput{
			Filters:         filters,
			Pagination:      params,
			IncludeInactive: includeInactive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, result.Products, pagination.NewMeta(params, result.Total))
	}
}

func parseProductFilters(r *http.Request) (product.ListFilters, error) {
	query := r.URL.Query()
	filters := product.ListFilters{
		CategorySlug: validators.SanitizeString(query.Get("category"), 100),
		Search:       validators.SanitizeString(query.Get("search"), 100),
	}
	for key, dest := range map[string]**decimal.Decimal{"minPrice": &filters.MinPrice, "maxPrice": &filters.MaxPrice} {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}
		value, err := decimal.NewFromString(raw)
		if err != nil || value.IsNegative() {
			return product.ListFilters{}, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be a non-negative number", key)
		}
		*dest = &value
	}
	return filters, nil
}

func ProductsGetBySlug(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		result, err := svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminProductsGet(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminProductsCreate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.CreateProduct(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "Product created", result)
	}
}

func AdminProductsUpdate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.UpdateProduct(r.Context(), id, product.UpdateProductInput{
			Title:       body.Title,
			Slug:        body.Slug,
			Description: body.Description,
			CategoryID:  optionalUUID(body.CategoryID),
			Attributes:  body.Attributes,
			Images:      body.Images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Product updated", result)
	}
}

// AdminProductsDelete soft-deletes; orders keep their line snapshots.
func AdminProductsDelete(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "Product deleted", nil)
	}
}

func AdminProductsSetActive(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body setActiveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.SetActive(r.Context(), id, *body.IsActive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminVariantsAdd(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body variantRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.AddVariant(r.Context(), id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "Variant added", result)
	}
}

func AdminVariantsUpdate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		productID, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := pathUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateVariantRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.UpdateVariant(r.Context(), productID, variantID, product.UpdateVariantInput{
			Price:        body.Price,
			QtyAvailable: body.QtyAvailable,
			ReorderPoint: body.ReorderPoint,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminProductsUploadImage streams one multipart file to object storage.
func AdminProductsUploadImage(svc product.Service, maxUploadMB int, logg *logger.Logger) http.HandlerFunc {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	limit := int64(maxUploadMB) << 20
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
		if err := r.ParseMultipartForm(limit); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart upload"))
			return
		}
		file, header, err := r.FormFile(imageFormField)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, imageFormField+" file is required"))
			return
		}
		defer file.Close()

		result, err := svc.UploadImage(r.Context(), id, product.ImageUpload{
			Reader:      file,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "Image uploaded", result)
	}
}

func AdminProductsRemoveImage(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product"))
			return
		}
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body removeImageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RemoveImage(r.Context(), id, body.URL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func optionalUUID(raw *string) *uuid.UUID {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil
	}
	return &id
}

