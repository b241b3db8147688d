package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type stubCartService struct {
	cart.Service
	added   *cart.AddItemInput
	updated int
	err     error
}

func (s *stubCartService) GetOrCreate(_ context.Context, userID uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{ID: uuid.New(), UserID: userID, Items: []cart.CartItemDTO{}}, s.err
}

func (s *stubCartService) AddItem(_ context.Context, userID uuid.UUID, input cart.AddItemInput) (*cart.CartDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.added = &input
	return &cart.CartDTO{
		UserID:     userID,
		TotalPrice: decimal.RequireFromString("51.98"),
		Items: []cart.CartItemDTO{{
			ProductID: input.ProductID,
			VariantID: input.VariantID,
			Quantity:  input.Quantity,
		}},
	}, nil
}

func (s *stubCartService) UpdateItemQuantity(_ context.Context, userID, itemID uuid.UUID, quantity int) (*cart.CartDTO, error) {
	s.updated = quantity
	return &cart.CartDTO{UserID: userID}, s.err
}

func (s *stubCartService) ClearTx(context.Context, *gorm.DB, uuid.UUID) error { return nil }

func cartRouter(svc cart.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/cart/my-cart", CartGet(svc, nil))
	r.Post("/api/cart/add", CartAdd(svc, nil))
	r.Patch("/api/cart/update/{itemId}", CartUpdateItem(svc, nil))
	return r
}

func TestCartAddReturnsCreated(t *testing.T) {
	svc := &stubCartService{}
	userID := uuid.New()
	productID, variantID := uuid.New(), uuid.New()
	body := `{"productId":"` + productID.String() + `","variantId":"` + variantID.String() + `","quantity":2}`

	resp := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(resp, authedRequest(http.MethodPost, "/api/cart/add", strings.NewReader(body), userID.String(), "customer"))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.added == nil || svc.added.ProductID != productID || svc.added.Quantity != 2 {
		t.Fatalf("unexpected service input: %+v", svc.added)
	}
	env := decodeEnvelope(t, resp)
	if !env.Success || env.Message != "Item added to cart" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if !strings.Contains(string(env.Data), `"totalPrice":51.98`) {
		t.Fatalf("expected numeric total in payload, got %s", env.Data)
	}
}

func TestCartAddRejectsBadBody(t *testing.T) {
	svc := &stubCartService{}
	cases := map[string]string{
		"zero quantity":  `{"productId":"` + uuid.NewString() + `","variantId":"` + uuid.NewString() + `","quantity":0}`,
		"bad product id": `{"productId":"abc","variantId":"` + uuid.NewString() + `","quantity":1}`,
		"unknown field":  `{"productId":"` + uuid.NewString() + `","variantId":"` + uuid.NewString() + `","quantity":1,"price":1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			cartRouter(svc).ServeHTTP(resp, authedRequest(http.MethodPost, "/api/cart/add", strings.NewReader(body), uuid.NewString(), "customer"))
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
		})
	}
	if svc.added != nil {
		t.Fatal("service should not be called for invalid input")
	}
}

func TestCartAddSurfacesStockError(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeValidation, "Only 3 items available in stock")}
	body := `{"productId":"` + uuid.NewString() + `","variantId":"` + uuid.NewString() + `","quantity":5}`

	resp := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(resp, authedRequest(http.MethodPost, "/api/cart/add", strings.NewReader(body), uuid.NewString(), "customer"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	env := decodeEnvelope(t, resp)
	if env.Error == nil || env.Error.Message != "Only 3 items available in stock" {
		t.Fatalf("unexpected error payload: %+v", env.Error)
	}
}

func TestCartUpdateParsesItemID(t *testing.T) {
	svc := &stubCartService{}

	resp := httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(resp, authedRequest(http.MethodPatch, "/api/cart/update/not-a-uuid", strings.NewReader(`{"quantity":2}`), uuid.NewString(), "customer"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	cartRouter(svc).ServeHTTP(resp, authedRequest(http.MethodPatch, "/api/cart/update/"+uuid.NewString(), strings.NewReader(`{"quantity":4}`), uuid.NewString(), "customer"))
	if resp.Code != http.StatusOK || svc.updated != 4 {
		t.Fatalf("expected 200 with quantity 4, got %d / %d", resp.Code, svc.updated)
	}
}

func TestCartRequiresUser(t *testing.T) {
	resp := httptest.NewRecorder()
	cartRouter(&stubCartService{}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/cart/my-cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
