package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type memRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (m *memRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memRateStore) RateLimitKey(scope string) string { return "sf:rl:" + scope }

func loginAttempt(remote, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.RemoteAddr = remote
	return req
}

func TestAuthRateLimitThrottlesPerBucket(t *testing.T) {
	cases := []struct {
		name      string
		policy    AuthRateLimitPolicy
		attempts  []*http.Request
		wantCodes []int
	}{
		{
			name:   "email budget shared across ips",
			policy: NewAuthRateLimitPolicy("login", time.Minute, 0, 2),
			attempts: []*http.Request{
				loginAttempt("1.1.1.1:1", `{"email":"Shopper@Example.com"}`),
				loginAttempt("2.2.2.2:1", `{"email":"shopper@example.com "}`),
				loginAttempt("3.3.3.3:1", `{"email":"shopper@example.com"}`),
			},
			wantCodes: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:   "ip budget shared across emails",
			policy: NewAuthRateLimitPolicy("register", time.Minute, 1, 10),
			attempts: []*http.Request{
				loginAttempt("5.6.7.8:1234", `{"email":"a@example.com"}`),
				loginAttempt("5.6.7.8:4321", `{"email":"b@example.com"}`),
			},
			wantCodes: []int{http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:   "disabled policy passes through",
			policy: NewAuthRateLimitPolicy("login", 0, 1, 1),
			attempts: []*http.Request{
				loginAttempt("1.1.1.1:1", `{"email":"a@example.com"}`),
				loginAttempt("1.1.1.1:1", `{"email":"a@example.com"}`),
			},
			wantCodes: []int{http.StatusOK, http.StatusOK},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AuthRateLimit(tc.policy, &memRateStore{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			for i, req := range tc.attempts {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				if rec.Code != tc.wantCodes[i] {
					t.Fatalf("attempt %d: expected %d, got %d", i, tc.wantCodes[i], rec.Code)
				}
			}
		})
	}
}

func TestAuthRateLimitRejectionShape(t *testing.T) {
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", 90*time.Second, 1, 0), &memRateStore{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var rec *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, loginAttempt("9.9.9.9:1", `{}`))
	}

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Fatalf("expected Retry-After 90, got %q", got)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("unexpected code: %s", payload.Error.Code)
	}
}

func TestAuthRateLimitRestoresBody(t *testing.T) {
	const body = `{"email":"tester@example.com","password":"secret"}`
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 5, 5), &memRateStore{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if string(got) != body {
			t.Fatalf("handler saw %q", got)
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), loginAttempt("1.2.3.4:5678", body))
}

func TestAuthRateLimitKeyLayout(t *testing.T) {
	store := &memRateStore{}
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	login := AuthRateLimit(NewAuthRateLimitPolicy("Login", time.Minute, 5, 0), store, nil)(noop)
	register := AuthRateLimit(NewAuthRateLimitPolicy("register", time.Minute, 5, 0), store, nil)(noop)

	spoofed := loginAttempt("9.9.9.9:1", `{}`)
	spoofed.Header.Set("X-Forwarded-For", "not-an-ip, 10.0.0.1")
	login.ServeHTTP(httptest.NewRecorder(), spoofed)

	forwarded := loginAttempt("10.0.0.2:1", `{}`)
	forwarded.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	register.ServeHTTP(httptest.NewRecorder(), forwarded)

	want := map[string]int64{
		"sf:rl:ip:login:9.9.9.9":        1,
		"sf:rl:ip:register:203.0.113.7": 1,
	}
	if len(store.counts) != len(want) {
		t.Fatalf("unexpected counters: %v", store.counts)
	}
	for key, n := range want {
		if store.counts[key] != n {
			t.Fatalf("expected %s=%d, got %v", key, n, store.counts)
		}
	}
}
