package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/idempotency"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func newTestManager(t *testing.T) (*idempotency.Manager, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	manager, err := idempotency.NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return manager, store
}

var testShopper = uuid.MustParse("6f1c2a8e-3b7d-4c55-9e0a-1d2f3a4b5c6d")

func orderRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req.WithContext(WithPrincipal(req.Context(), Principal{UserID: testShopper, Role: enums.UserRoleCustomer}))
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	manager, _ := newTestManager(t)
	calls := 0
	handler := Idempotency(manager, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"success":true,"data":{"call":%d}}`, calls)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest(`{"paymentMethod":"cod"}`, "abc-123"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, orderRequest(`{"paymentMethod":"cod"}`, "abc-123"))

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", second.Code)
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected replay marker header")
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	manager, _ := newTestManager(t)
	handler := Idempotency(manager, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{"paymentMethod":"cod"}`, "abc-123"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(`{"paymentMethod":"paypal"}`, "abc-123"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("unexpected code %s", payload.Error.Code)
	}
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	manager, store := newTestManager(t)
	calls := 0
	handler := Idempotency(manager, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "retry-me"))
	if len(store.data) != 0 {
		t.Fatalf("expected key released, store has %v", store.data)
	}
	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "retry-me"))
	if calls != 2 {
		t.Fatalf("expected retry to reach handler, calls=%d", calls)
	}
}

func TestIdempotencyReleasesKeyWhenHandlerPanics(t *testing.T) {
	manager, store := newTestManager(t)
	calls := 0
	handler := Idempotency(manager, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			panic("nil map write")
		}
		w.WriteHeader(http.StatusCreated)
	}))

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the panic to reach the caller")
			}
		}()
		handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "crash-1"))
	}()
	if len(store.data) != 0 {
		t.Fatalf("expected key released after panic, store has %v", store.data)
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(`{}`, "crash-1"))
	if calls != 2 || resp.Code != http.StatusCreated {
		t.Fatalf("expected retry to reach handler, calls=%d code=%d", calls, resp.Code)
	}
}

func TestIdempotencyReleasesKeyWhenPricesNeedConfirmation(t *testing.T) {
	manager, _ := newTestManager(t)
	confirmed := false
	handler := Idempotency(manager, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !confirmed {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest(`{"paymentMethod":"cod"}`, "checkout-1"))
	if first.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", first.Code)
	}

	confirmed = true
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, orderRequest(`{"paymentMethod":"cod"}`, "checkout-1"))
	if second.Code != http.StatusCreated || second.Header().Get("Idempotent-Replayed") != "" {
		t.Fatalf("expected a fresh 201 after confirmation, got %d replayed=%q", second.Code, second.Header().Get("Idempotent-Replayed"))
	}
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	manager, store := newTestManager(t)
	calls := 0
	handler := Idempotency(manager, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, ""))
	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, ""))
	if calls != 2 || len(store.data) != 0 {
		t.Fatalf("expected pass-through, calls=%d store=%v", calls, store.data)
	}
}

func TestIdempotencyRejectsInvalidKey(t *testing.T) {
	manager, _ := newTestManager(t)
	handler := Idempotency(manager, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(`{}`, "has space"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
