package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/finqlabs/finretriever/internal/config"
)

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	handler := newTestRouter(&queryFake{}, &docRepoFake{}, config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id header")
	}
}

func TestRequestIDEchoedWhenPresent(t *testing.T) {
	handler := newTestRouter(&queryFake{}, &docRepoFake{}, config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("request id = %q, want req-123", got)
	}
}

func TestRateLimitShedsExcessRequests(t *testing.T) {
	handler := newTestRouter(&queryFake{}, &docRepoFake{}, config.Config{
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	})

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}
}

func TestRateLimitDisabledByDefault(t *testing.T) {
	handler := newTestRouter(&queryFake{}, &docRepoFake{}, config.Config{})

	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, res.Code)
		}
	}
}
