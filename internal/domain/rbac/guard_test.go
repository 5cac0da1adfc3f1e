package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

type testSubject struct {
	roleID uuid.UUID
	active bool
}

func (s *testSubject) SubjectRoleID() uuid.UUID {
	if s == nil {
		return uuid.Nil
	}
	return s.roleID
}

func (s *testSubject) IsActive() bool { return s != nil && s.active }

func seedRole(t *testing.T, repo *mockRepo, name string, universal, oversight bool, perms ...PermissionCode) *Role {
	t.Helper()
	r := &Role{Name: name, Universal: universal, ReadOversight: oversight, Permissions: perms}
	if err := repo.Create(context.Background(), r); err != nil {
		t.Fatalf("seed role: %v", err)
	}
	return r
}

func TestGuard_Cashier(t *testing.T) {
	repo := newMockRepo()
	cashier := seedRole(t, repo, "cashier", false, false, PaymentProcess)
	g := NewGuard(repo, nil)
	x := &testSubject{roleID: cashier.ID, active: true}

	d, err := g.Authorize(context.Background(), x, NeedPermission(InvoiceCreate))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed || !errors.Is(d.Err(), apperr.ErrDenied) {
		t.Errorf("expected deny for invoice_create, got %+v", d)
	}

	d, err = g.Authorize(context.Background(), x, NeedPermission(PaymentProcess))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || d.Reason != ReasonGranted {
		t.Errorf("expected allow for payment_process, got %+v", d)
	}
}

func TestGuard_InactiveDeniedForEverything(t *testing.T) {
	repo := newMockRepo()
	super := seedRole(t, repo, "superadmin", true, false)
	g := NewGuard(repo, nil)
	inactive := &testSubject{roleID: super.ID, active: false}

	reqs := []Requirement{NeedPermission(PatientRead), NeedPermission(UserManage), NeedRole("superadmin")}
	for _, req := range reqs {
		d, err := g.Authorize(context.Background(), inactive, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Allowed || !errors.Is(d.Err(), apperr.ErrUnauthenticated) {
			t.Errorf("expected unauthenticated deny, got %+v", d)
		}
	}
}

func TestGuard_MissingSubject(t *testing.T) {
	g := NewGuard(newMockRepo(), nil)
	var nilSubject *testSubject

	for _, s := range []Subject{nil, nilSubject} {
		d, err := g.Authorize(context.Background(), s, NeedPermission(PatientRead))
		if err != nil || d.Allowed || d.Reason != ReasonUnauthenticated {
			t.Errorf("expected unauthenticated deny, got %+v %v", d, err)
		}
	}
}

func TestGuard_Universal(t *testing.T) {
	repo := newMockRepo()
	super := seedRole(t, repo, "root", true, false)
	g := NewGuard(repo, nil)
	s := &testSubject{roleID: super.ID, active: true}

	for _, p := range ListPermissions() {
		d, _ := g.Authorize(context.Background(), s, NeedPermission(p.Code))
		if !d.Allowed || d.Reason != ReasonUniversal {
			t.Fatalf("expected universal allow for %s, got %+v", p.Code, d)
		}
	}
}

func TestGuard_ReadOversight(t *testing.T) {
	repo := newMockRepo()
	head := seedRole(t, repo, "facility_head", false, true, SettingsManage)
	g := NewGuard(repo, nil)
	s := &testSubject{roleID: head.ID, active: true}

	tests := []struct {
		code   PermissionCode
		allow  bool
		reason Reason
	}{
		{PatientRead, true, ReasonReadOversight},
		{WorkorderRead, true, ReasonReadOversight},
		{SettingsManage, true, ReasonGranted},
		{PatientUpdate, false, ReasonMissingPermission},
		{InvoiceFinalize, false, ReasonMissingPermission},
	}
	for _, tt := range tests {
		d, err := g.Authorize(context.Background(), s, NeedPermission(tt.code))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Allowed != tt.allow || d.Reason != tt.reason {
			t.Errorf("%s: got %+v, want allow=%v reason=%s", tt.code, d, tt.allow, tt.reason)
		}
	}
}

func TestGuard_RoleCheckIgnoresPermissions(t *testing.T) {
	repo := newMockRepo()
	super := seedRole(t, repo, "superadmin", true, false)
	hr := seedRole(t, repo, "hr", false, false, StaffManage)
	g := NewGuard(repo, nil)

	// The universal flag satisfies permission checks only, never role-name gates.
	d, _ := g.Authorize(context.Background(), &testSubject{roleID: super.ID, active: true}, NeedRole("hr"))
	if d.Allowed {
		t.Error("role gate must compare role names only")
	}
	d, _ = g.Authorize(context.Background(), &testSubject{roleID: hr.ID, active: true}, NeedRole("finance", "hr"))
	if !d.Allowed || d.Reason != ReasonRoleMatch {
		t.Errorf("expected role match, got %+v", d)
	}
}

func TestGuard_StoreFailureIsNotAllow(t *testing.T) {
	repo := newMockRepo()
	role := seedRole(t, repo, "lab", false, false, ResultsPost)
	repo.failErr = apperr.ErrStoreUnavailable
	g := NewGuard(repo, nil)

	d, err := g.Authorize(context.Background(), &testSubject{roleID: role.ID, active: true}, NeedPermission(ResultsPost))
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if d.Allowed {
		t.Error("store failure must not allow")
	}
}

func TestGuard_UnknownRoleDenied(t *testing.T) {
	g := NewGuard(newMockRepo(), nil)
	d, err := g.Authorize(context.Background(), &testSubject{roleID: uuid.New(), active: true}, NeedPermission(PatientRead))
	if err != nil || d.Allowed || !errors.Is(d.Err(), apperr.ErrDenied) {
		t.Errorf("expected deny, got %+v %v", d, err)
	}
}

func TestRequirePermission_Middleware(t *testing.T) {
	repo := newMockRepo()
	cashier := seedRole(t, repo, "cashier", false, false, PaymentProcess)
	g := NewGuard(repo, nil)
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	tests := []struct {
		name    string
		subject Subject
		code    PermissionCode
		status  int
	}{
		{"no subject", nil, PaymentProcess, http.StatusUnauthorized},
		{"inactive", &testSubject{roleID: cashier.ID}, PaymentProcess, http.StatusUnauthorized},
		{"denied", &testSubject{roleID: cashier.ID, active: true}, InvoiceCreate, http.StatusForbidden},
		{"allowed", &testSubject{roleID: cashier.ID, active: true}, PaymentProcess, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
			if tt.subject != nil {
				req = req.WithContext(WithSubject(req.Context(), tt.subject))
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := g.RequirePermission(tt.code)(ok)(c)
			status := rec.Code
			if he, isHTTP := err.(*echo.HTTPError); isHTTP {
				status = he.Code
				if he.Message != "access denied" {
					t.Errorf("expected generic message, got %v", he.Message)
				}
			}
			if status != tt.status {
				t.Errorf("expected %d, got %d", tt.status, status)
			}
		})
	}
}

// An unregistered code is denied for every role, so the shortcuts agree with
// RoleHasPermission.
func TestGuard_UnregisteredCodeDenied(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &recordingAuditor{})
	typo := PermissionCode("patinet_read")
	roles := []*Role{
		seedRole(t, repo, "superadmin", true, false),
		seedRole(t, repo, "facility_head", false, true),
		seedRole(t, repo, "legacy", false, false, typo),
	}
	g := NewGuard(repo, nil)

	for _, role := range roles {
		d, err := g.Authorize(context.Background(), &testSubject{roleID: role.ID, active: true}, NeedPermission(typo))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Allowed || d.Reason != ReasonMissingPermission {
			t.Errorf("%s: expected missing_permission deny, got %+v", role.Name, d)
		}
		if role.Universal {
			held, err := svc.RoleHasPermission(context.Background(), role.ID, typo)
			if err != nil || held {
				t.Errorf("%s: RoleHasPermission = %v, %v", role.Name, held, err)
			}
		}
	}
}

func TestGuard_UnregisteredCodeInactiveStillUnauthenticated(t *testing.T) {
	repo := newMockRepo()
	super := seedRole(t, repo, "superadmin", true, false)
	d, err := NewGuard(repo, nil).Authorize(context.Background(),
		&testSubject{roleID: super.ID}, NeedPermission("patinet_read"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(d.Err(), apperr.ErrUnauthenticated) {
		t.Errorf("expected unauthenticated, got %+v", d)
	}
}
