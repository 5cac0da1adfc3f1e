package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Decision("permission", true)
	m.AuditWrite(errors.New("boom"))
	m.FacilitySelection("selected")
	m.SecurityEvent(http.StatusForbidden)
}

func TestMetrics_Decision(t *testing.T) {
	m := NewMetrics()
	m.Decision("permission", true)
	m.Decision("permission", false)
	m.Decision("permission", false)
	m.Decision("role", true)

	if got := testutil.ToFloat64(m.decisions.WithLabelValues("permission", "deny")); got != 2 {
		t.Errorf("permission deny = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.decisions.WithLabelValues("role", "allow")); got != 1 {
		t.Errorf("role allow = %v, want 1", got)
	}
}

func TestMetrics_AuditWrite(t *testing.T) {
	m := NewMetrics()
	m.AuditWrite(nil)
	m.AuditWrite(errors.New("connection reset"))

	if got := testutil.ToFloat64(m.auditWrites.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.auditWrites.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok = %v, want 1", got)
	}
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := NewMetrics()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/roles/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roles/123", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/v1/roles/:id", "200")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "phc_http_requests_total") {
		t.Error("expected exposition to include phc_http_requests_total")
	}
}
