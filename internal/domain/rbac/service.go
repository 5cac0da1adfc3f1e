package rbac

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/AminoVic23/PHC-4/internal/domain/audit"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

var roleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,63}$`)

// Service is the role registry. Every mutation is recorded through the
// auditor in the same unit of work.
type Service struct {
	repo    Repository
	auditor audit.Auditor
}

func NewService(repo Repository, auditor audit.Auditor) *Service {
	return &Service{repo: repo, auditor: auditor}
}

func (s *Service) CreateRole(ctx context.Context, by uuid.UUID, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if !roleNamePattern.MatchString(name) {
		return nil, apperr.Invalid("role name must be lowercase letters, digits or underscores")
	}
	role := &Role{Name: name, Description: strings.TrimSpace(description), Permissions: []PermissionCode{}}
	_, err := s.auditor.Within(ctx, by, func(ctx context.Context) (audit.Event, error) {
		if err := s.repo.Create(ctx, role); err != nil {
			return audit.Event{}, err
		}
		return audit.Event{
			Action:     "role_create",
			EntityType: "role",
			EntityID:   role.ID.String(),
			After:      role.Snapshot(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// GrantPermission adds code to the role. Granting a permission the role
// already holds changes nothing and records nothing.
func (s *Service) GrantPermission(ctx context.Context, by, roleID uuid.UUID, code PermissionCode) error {
	if !Known(code) {
		return fmt.Errorf("permission %q: %w", code, apperr.ErrNotFound)
	}
	_, err := s.auditor.Within(ctx, by, func(ctx context.Context) (audit.Event, error) {
		added, err := s.repo.AddPermission(ctx, roleID, code)
		if err != nil || !added {
			return audit.Event{}, err
		}
		return audit.Event{
			Action:     "role_permission_grant",
			EntityType: "role",
			EntityID:   roleID.String(),
			After:      map[string]any{"permission": string(code)},
		}, nil
	})
	return err
}

// RevokePermission removes code from the role. Revoking a permission the
// role does not hold is a no-op; an unknown role is ErrNotFound.
func (s *Service) RevokePermission(ctx context.Context, by, roleID uuid.UUID, code PermissionCode) error {
	if !Known(code) {
		return fmt.Errorf("permission %q: %w", code, apperr.ErrNotFound)
	}
	_, err := s.auditor.Within(ctx, by, func(ctx context.Context) (audit.Event, error) {
		if _, err := s.repo.GetByID(ctx, roleID); err != nil {
			return audit.Event{}, err
		}
		removed, err := s.repo.RemovePermission(ctx, roleID, code)
		if err != nil || !removed {
			return audit.Event{}, err
		}
		return audit.Event{
			Action:     "role_permission_revoke",
			EntityType: "role",
			EntityID:   roleID.String(),
			Before:     map[string]any{"permission": string(code)},
		}, nil
	})
	return err
}

// SetFlags changes the universal and read-oversight capabilities of a role.
func (s *Service) SetFlags(ctx context.Context, by, roleID uuid.UUID, universal, readOversight bool) (*Role, error) {
	var updated *Role
	_, err := s.auditor.Within(ctx, by, func(ctx context.Context) (audit.Event, error) {
		role, err := s.repo.GetByID(ctx, roleID)
		if err != nil {
			return audit.Event{}, err
		}
		if role.Universal == universal && role.ReadOversight == readOversight {
			updated = role
			return audit.Event{}, nil
		}
		before := role.Snapshot()
		if err := s.repo.UpdateFlags(ctx, roleID, universal, readOversight); err != nil {
			return audit.Event{}, err
		}
		role.Universal, role.ReadOversight = universal, readOversight
		updated = role
		return audit.Event{
			Action:     "role_flags_update",
			EntityType: "role",
			EntityID:   roleID.String(),
			Before:     before,
			After:      role.Snapshot(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RoleHasPermission reports whether the role holds code. Universal roles
// hold every catalog permission.
func (s *Service) RoleHasPermission(ctx context.Context, roleID uuid.UUID, code PermissionCode) (bool, error) {
	role, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		return false, err
	}
	if role.Universal {
		return Known(code), nil
	}
	return s.repo.HasPermission(ctx, roleID, code)
}

func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.repo.List(ctx)
}

// RoleExists reports whether id names a role.
func (s *Service) RoleExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
