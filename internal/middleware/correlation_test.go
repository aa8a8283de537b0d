package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCorrelationID(t *testing.T) {
	handler := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := r.Context().Value(CorrelationKey).(string)
		if !ok || id == "" {
			t.Error("correlation id missing from context")
		}
	}))

	req := httptest.NewRequest("POST", "/runs/sitemap", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get(HeaderCorrelationID) == "" {
		t.Error("header missing")
	}
}

func TestCorrelationID_PropagatesIncomingHeader(t *testing.T) {
	var seen string
	handler := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(HeaderCorrelationID, "abc-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "abc-123" {
		t.Errorf("expected abc-123, got %q", seen)
	}
	if got := w.Header().Get(HeaderCorrelationID); got != "abc-123" {
		t.Errorf("expected response header abc-123, got %q", got)
	}
}

func TestGetCorrelationID_Unknown(t *testing.T) {
	if got := GetCorrelationID(context.Background()); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
}

func TestWithPipeline(t *testing.T) {
	ctx := WithPipeline(context.Background(), "sitemap")
	if got := GetPipeline(ctx); got != "sitemap" {
		t.Errorf("expected sitemap, got %q", got)
	}
	if got := GetPipeline(context.Background()); got != "" {
		t.Errorf("expected empty pipeline, got %q", got)
	}
}
