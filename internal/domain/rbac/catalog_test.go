package rbac

import (
	"errors"
	"testing"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

func TestListPermissions_Sorted(t *testing.T) {
	perms := ListPermissions()
	if len(perms) == 0 {
		t.Fatal("expected a populated catalog")
	}
	for i := 1; i < len(perms); i++ {
		if perms[i-1].Code >= perms[i].Code {
			t.Fatalf("catalog not sorted at %s", perms[i].Code)
		}
	}
}

func TestDescribe(t *testing.T) {
	p, err := Describe(InvoiceFinalize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Description != "Finalize invoices" {
		t.Errorf("unexpected description %q", p.Description)
	}
	if _, err := Describe("bogus_code"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register(PatientRead, "again", "again")
}

func TestIsRead(t *testing.T) {
	tests := map[PermissionCode]bool{
		PatientRead:   true,
		AuditRead:     true,
		ReportsView:   false,
		PatientUpdate: false,
		"thread":      false,
	}
	for code, want := range tests {
		if got := IsRead(code); got != want {
			t.Errorf("IsRead(%s) = %v, want %v", code, got, want)
		}
	}
}
