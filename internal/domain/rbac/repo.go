package rbac

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	UpdateFlags(ctx context.Context, id uuid.UUID, universal, readOversight bool) error

	// AddPermission and RemovePermission report whether a row changed.
	AddPermission(ctx context.Context, roleID uuid.UUID, code PermissionCode) (bool, error)
	RemovePermission(ctx context.Context, roleID uuid.UUID, code PermissionCode) (bool, error)
	HasPermission(ctx context.Context, roleID uuid.UUID, code PermissionCode) (bool, error)
}
