package grant

import (
	"context"

	"github.com/google/uuid"

	"github.com/AminoVic23/PHC-4/internal/domain/facility"
)

type Repository interface {
	// Create fails with ErrDuplicatePair when the pair already has an active
	// grant, and with ErrNotFound when the actor or facility does not exist.
	Create(ctx context.Context, g *FacilityGrant) error
	GetByID(ctx context.Context, id uuid.UUID) (*FacilityGrant, error)
	Update(ctx context.Context, g *FacilityGrant) error

	// ActiveGrant returns the active grant for the pair when the facility is
	// itself active, and ErrNotFound otherwise.
	ActiveGrant(ctx context.Context, actorID, facilityID uuid.UUID) (*FacilityGrant, error)
	AccessibleFacilities(ctx context.Context, actorID uuid.UUID) ([]*facility.Facility, error)
	ListForActor(ctx context.Context, actorID uuid.UUID, includeInactive bool) ([]*FacilityGrant, error)
	ListForFacility(ctx context.Context, facilityID uuid.UUID, includeInactive bool) ([]*Assignment, error)
}
