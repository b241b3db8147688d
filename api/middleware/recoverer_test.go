package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

func TestRecovererWritesInternalEnvelopeAndCountsPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(Recoverer(nil, httpMetrics))
	r.Get("/boom/{id}", func(http.ResponseWriter, *http.Request) {
		panic("nil map write")
	})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom/7", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "nil map write") {
		t.Fatalf("panic value leaked: %s", resp.Body.String())
	}

	expected := `
# HELP storefront_http_panics_total Handler panics recovered, by route.
# TYPE storefront_http_panics_total counter
storefront_http_panics_total{route="/boom/{id}"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "storefront_http_panics_total"); err != nil {
		t.Fatalf("unexpected panic metric: %v", err)
	}
}

func TestRecovererReraisesAbortHandler(t *testing.T) {
	handler := Recoverer(nil, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequestIDKeepsSafeInboundIDs(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "edge-7f3a.21")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get(requestIDHeader); got != "edge-7f3a.21" {
		t.Fatalf("expected inbound id echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "bad id\r\nX-Injected: 1")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	got := resp.Header().Get(requestIDHeader)
	if got == "" || strings.ContainsAny(got, " \r\n") {
		t.Fatalf("expected a generated id, got %q", got)
	}
}
