package staff

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/AminoVic23/PHC-4/internal/domain/audit"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/auth"
)

// RoleChecker confirms a role id before it is assigned.
type RoleChecker interface {
	RoleExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// dummyHash is compared against when an email is unknown so that a failed
// login costs the same whether or not the account exists.
var dummyHash, _ = auth.HashPassword("phc-timing-equalizer")

type Service struct {
	repo    Repository
	roles   RoleChecker
	auditor audit.Auditor
}

func NewService(repo Repository, roles RoleChecker, auditor audit.Auditor) *Service {
	return &Service{repo: repo, roles: roles, auditor: auditor}
}

func (s *Service) Enroll(ctx context.Context, by uuid.UUID, in EnrollInput) (*Actor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := s.checkRole(ctx, in.RoleID); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if errors.Is(err, auth.ErrWeakPassword) {
		return nil, apperr.Invalid(err.Error())
	}
	if err != nil {
		return nil, err
	}

	a := &Actor{
		EmployeeNo:   strings.TrimSpace(in.EmployeeNo),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		RoleID:       in.RoleID,
		DepartmentID: in.DepartmentID,
		Active:       true,
	}
	_, err = s.auditor.Within(ctx, by, func(ctx context.Context) (audit.Event, error) {
		if err := s.repo.Create(ctx, a); err != nil {
			return audit.Event{}, err
		}
		return audit.Event{Action: "staff_create", EntityType: "staff", EntityID: a.ID.String(), After: a.Snapshot()}, nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Deactivate(ctx context.Context, by, id uuid.UUID) (*Actor, error) {
	return s.setActive(ctx, by, id, false)
}

func (s *Service) Reactivate(ctx context.Context, by, id uuid.UUID) (*Actor, error) {
	return s.setActive(ctx, by, id, true)
}

func (s *Service) setActive(ctx context.Context, by, id uuid.UUID, active bool) (*Actor, error) {
	if !active && by == id {
		return nil, apperr.Invalid("cannot deactivate your own account")
	}
	action := "staff_deactivate"
	if active {
		action = "staff_reactivate"
	}
	return s.mutate(ctx, by, id, action, func(a *Actor) bool {
		if a.Active == active {
			return false
		}
		a.Active = active
		return true
	})
}

func (s *Service) ChangeRole(ctx context.Context, by, id, roleID uuid.UUID) (*Actor, error) {
	if err := s.checkRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, by, id, "staff_role_change", func(a *Actor) bool {
		if a.RoleID == roleID {
			return false
		}
		a.RoleID = roleID
		return true
	})
}

type ProfileInput struct {
	Name         string     `json:"name"`
	EmployeeNo   string     `json:"employee_no"`
	DepartmentID *uuid.UUID `json:"department_id"`
}

func (s *Service) UpdateProfile(ctx context.Context, by, id uuid.UUID, in ProfileInput) (*Actor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}
	employeeNo := strings.TrimSpace(in.EmployeeNo)
	return s.mutate(ctx, by, id, "staff_update", func(a *Actor) bool {
		if a.Name == name && a.EmployeeNo == employeeNo && sameID(a.DepartmentID, in.DepartmentID) {
			return false
		}
		a.Name = name
		a.EmployeeNo = employeeNo
		a.DepartmentID = in.DepartmentID
		return true
	})
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// mutate loads the actor, applies change and writes it back with an audit
// entry carrying both snapshots. A change that reports false is a no-op.
func (s *Service) mutate(ctx context.Context, by, id uuid.UUID, action string, change func(a *Actor) bool) (*Actor, error) {
	var out *Actor
	_, err := s.auditor.Within(ctx, by, func(ctx context.Context) (audit.Event, error) {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return audit.Event{}, err
		}
		before := a.Snapshot()
		out = a
		if !change(a) {
			return audit.Event{}, nil
		}
		if err := s.repo.Update(ctx, a); err != nil {
			return audit.Event{}, err
		}
		return audit.Event{Action: action, EntityType: "staff", EntityID: a.ID.String(), Before: before, After: a.Snapshot()}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RotateCredential replaces the actor's own password. The current password
// must verify and the new one must differ from it.
func (s *Service) RotateCredential(ctx context.Context, id uuid.UUID, current, next string) error {
	if current == next {
		return apperr.Invalid("new password must differ from the current password")
	}
	_, err := s.auditor.Within(ctx, id, func(ctx context.Context) (audit.Event, error) {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return audit.Event{}, err
		}
		if err := auth.VerifyPassword(a.PasswordHash, current); err != nil {
			return audit.Event{}, apperr.ErrDenied
		}
		hash, err := auth.HashPassword(next)
		if errors.Is(err, auth.ErrWeakPassword) {
			return audit.Event{}, apperr.Invalid(err.Error())
		}
		if err != nil {
			return audit.Event{}, err
		}
		if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
			return audit.Event{}, err
		}
		return audit.Event{Action: "password_change", EntityType: "staff", EntityID: id.String(), Note: "credential rotated"}, nil
	})
	return err
}

// Authenticate verifies an email and password. Unknown emails, inactive
// accounts and wrong passwords all fail with ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Actor, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	a, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		auth.VerifyPassword(dummyHash, password) //nolint:errcheck
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if err := auth.VerifyPassword(a.PasswordHash, password); err != nil {
		return nil, apperr.ErrUnauthenticated
	}
	if !a.Active {
		return nil, apperr.ErrUnauthenticated
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Actor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*Actor, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) List(ctx context.Context, limit, offset int, activeOnly bool) ([]*Actor, int, error) {
	return s.repo.List(ctx, limit, offset, activeOnly)
}

func (s *Service) checkRole(ctx context.Context, roleID uuid.UUID) error {
	if roleID == uuid.Nil {
		return apperr.Invalid("role_id is required")
	}
	ok, err := s.roles.RoleExists(ctx, roleID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("role %s: %w", roleID, apperr.ErrNotFound)
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", apperr.Invalid("a valid email is required")
	}
	return strings.ToLower(addr.Address), nil
}
