package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/platform/auth"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	svc, repo, _ := newTestService()
	return NewHandler(svc, NewGuard(repo, nil)), repo, echo.New()
}

func TestHandler_CreateRole(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/roles", strings.NewReader(`{"name":"triage","description":"Triage nurse"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), admin, "s1"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateRole(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var r Role
	json.Unmarshal(rec.Body.Bytes(), &r)
	if r.Name != "triage" {
		t.Errorf("expected triage, got %s", r.Name)
	}
}

func TestHandler_CreateRole_Duplicate(t *testing.T) {
	h, repo, e := newTestHandler()
	seedRole(t, repo, "triage", false, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/roles", strings.NewReader(`{"name":"triage"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), admin, "s1"))
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.CreateRole(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestHandler_GrantPermission(t *testing.T) {
	h, repo, e := newTestHandler()
	role := seedRole(t, repo, "lab", false, false)

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), admin, "s1"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "code")
	c.SetParamValues(role.ID.String(), string(ResultsPost))

	if err := h.GrantPermission(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if !repo.roles[role.ID].Has(ResultsPost) {
		t.Error("expected permission granted")
	}
}

func TestHandler_GrantPermission_UnknownCode(t *testing.T) {
	h, repo, e := newTestHandler()
	role := seedRole(t, repo, "lab", false, false)

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), admin, "s1"))
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id", "code")
	c.SetParamValues(role.ID.String(), "not_a_permission")

	err := h.GrantPermission(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_ListPermissions(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/permissions", nil)
	rec := httptest.NewRecorder()

	if err := h.ListPermissions(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var perms []Permission
	json.Unmarshal(rec.Body.Bytes(), &perms)
	if len(perms) != len(ListPermissions()) {
		t.Errorf("expected %d permissions, got %d", len(ListPermissions()), len(perms))
	}
}

func TestHandler_RegisterRoutes_Guarded(t *testing.T) {
	h, _, e := newTestHandler()
	h.RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/roles", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a subject, got %d", rec.Code)
	}
}
