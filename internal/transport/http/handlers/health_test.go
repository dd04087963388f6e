package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func healthRouter(checks map[string]DependencyChecker) *gin.Engine {
	engine := gin.New()
	h := NewHealthHandler(checks)
	engine.GET("/healthz", h.Status)
	engine.GET("/readyz", h.Ready)
	return engine
}

func TestHealthStatus(t *testing.T) {
	engine := healthRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected status ok, got %q", resp.Status)
	}
	if resp.StartedAt.IsZero() {
		t.Fatalf("expected a start timestamp")
	}
}

func TestReadyAllDependenciesHealthy(t *testing.T) {
	engine := healthRouter(map[string]DependencyChecker{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return nil },
	})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestReadyDegradedDependency(t *testing.T) {
	engine := healthRouter(map[string]DependencyChecker{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" {
		t.Fatalf("expected degraded status, got %q", resp.Status)
	}
	if resp.Dependencies["postgres"] != "ok" {
		t.Fatalf("expected postgres ok, got %q", resp.Dependencies["postgres"])
	}
	if resp.Dependencies["redis"] == "ok" {
		t.Fatalf("expected redis to report its failure")
	}
}
