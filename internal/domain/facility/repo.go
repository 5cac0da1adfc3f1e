package facility

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *Facility) error
	GetByID(ctx context.Context, id uuid.UUID) (*Facility, error)
	GetByCode(ctx context.Context, code string) (*Facility, error)
	Update(ctx context.Context, f *Facility) error
	// List returns facilities ordered by name.
	List(ctx context.Context, includeInactive bool) ([]*Facility, error)

	CreateDepartment(ctx context.Context, d *Department) error
	GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error)
	SetDepartmentActive(ctx context.Context, id uuid.UUID, active bool) error
	ListDepartments(ctx context.Context, facilityID uuid.UUID) ([]*Department, error)
}
