package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDGeneratesDistinctIDs(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))

	a := first.Header().Get("X-Request-ID")
	b := second.Header().Get("X-Request-ID")
	if a == "" || b == "" {
		t.Fatalf("X-Request-ID missing: %q, %q", a, b)
	}
	if a == b {
		t.Errorf("both requests got request ID %q, want distinct IDs", a)
	}
}

func TestRequestIDPassesThroughHeader(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("X-Request-ID = %q, want the client-supplied value", got)
	}
}
