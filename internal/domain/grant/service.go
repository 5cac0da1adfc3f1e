package grant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AminoVic23/PHC-4/internal/domain/audit"
	"github.com/AminoVic23/PHC-4/internal/domain/facility"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

const maxNotesLength = 500

type Service struct {
	repo    Repository
	auditor audit.Auditor
	now     func() time.Time
}

func NewService(repo Repository, auditor audit.Auditor) *Service {
	return &Service{repo: repo, auditor: auditor, now: time.Now}
}

// Grant gives actorID access to facilityID with the given capabilities. A
// second active grant for the same pair fails with ErrDuplicatePair.
func (s *Service) Grant(ctx context.Context, actorID, facilityID uuid.UUID, caps Capabilities, grantedBy uuid.UUID, notes string) (*FacilityGrant, error) {
	if actorID == uuid.Nil || facilityID == uuid.Nil {
		return nil, apperr.Invalid("actor_id and facility_id are required")
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLength {
		return nil, apperr.Invalid("notes must be at most 500 characters")
	}
	g := &FacilityGrant{
		ActorID:      actorID,
		FacilityID:   facilityID,
		Capabilities: caps,
		Active:       true,
		AssignedBy:   &grantedBy,
		Notes:        notes,
	}
	_, err := s.auditor.Within(ctx, grantedBy, func(ctx context.Context) (audit.Event, error) {
		if err := s.repo.Create(ctx, g); err != nil {
			return audit.Event{}, err
		}
		return audit.Event{Action: "facility_grant_create", EntityType: "facility_grant", EntityID: g.ID.String(), After: g.Snapshot()}, nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Revoke deactivates a grant. The row is kept for history; revoking an
// already inactive grant changes nothing.
func (s *Service) Revoke(ctx context.Context, by, id uuid.UUID) (*FacilityGrant, error) {
	return s.mutate(ctx, by, id, "facility_grant_revoke", func(g *FacilityGrant) bool {
		if !g.Active {
			return false
		}
		now := s.now().UTC()
		g.Active = false
		g.RevokedAt = &now
		g.RevokedBy = &by
		return true
	})
}

// Reactivate restores a revoked grant. It fails with ErrDuplicatePair when the
// pair has since been given a new active grant.
func (s *Service) Reactivate(ctx context.Context, by, id uuid.UUID) (*FacilityGrant, error) {
	return s.mutate(ctx, by, id, "facility_grant_reactivate", func(g *FacilityGrant) bool {
		if g.Active {
			return false
		}
		g.Active = true
		g.RevokedAt = nil
		g.RevokedBy = nil
		return true
	})
}

func (s *Service) UpdateCapabilities(ctx context.Context, by, id uuid.UUID, caps Capabilities) (*FacilityGrant, error) {
	return s.mutate(ctx, by, id, "facility_grant_update", func(g *FacilityGrant) bool {
		if g.Capabilities == caps {
			return false
		}
		g.Capabilities = caps
		return true
	})
}

func (s *Service) mutate(ctx context.Context, by, id uuid.UUID, action string, change func(g *FacilityGrant) bool) (*FacilityGrant, error) {
	var out *FacilityGrant
	_, err := s.auditor.Within(ctx, by, func(ctx context.Context) (audit.Event, error) {
		cur, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return audit.Event{}, err
		}
		out = cur
		before := cur.Snapshot()
		if !change(cur) {
			return audit.Event{}, nil
		}
		if err := s.repo.Update(ctx, cur); err != nil {
			return audit.Event{}, err
		}
		return audit.Event{Action: action, EntityType: "facility_grant", EntityID: id.String(), Before: before, After: cur.Snapshot()}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HasAccess reports whether the actor holds an active grant with can_access
// on an active facility. A missing grant is a plain false, not an error.
func (s *Service) HasAccess(ctx context.Context, actorID, facilityID uuid.UUID) (bool, error) {
	g, err := s.active(ctx, actorID, facilityID)
	if err != nil || g == nil {
		return false, err
	}
	return g.CanAccess, nil
}

// HasCapability requires access as well as the flag itself.
func (s *Service) HasCapability(ctx context.Context, actorID, facilityID uuid.UUID, cap Capability) (bool, error) {
	g, err := s.active(ctx, actorID, facilityID)
	if err != nil || g == nil {
		return false, err
	}
	return g.CanAccess && g.Has(cap), nil
}

func (s *Service) active(ctx context.Context, actorID, facilityID uuid.UUID) (*FacilityGrant, error) {
	g, err := s.repo.ActiveGrant(ctx, actorID, facilityID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return g, err
}

func (s *Service) ListAccessibleFacilities(ctx context.Context, actorID uuid.UUID) ([]*facility.Facility, error) {
	return s.repo.AccessibleFacilities(ctx, actorID)
}

func (s *Service) ListForActor(ctx context.Context, actorID uuid.UUID, includeInactive bool) ([]*FacilityGrant, error) {
	return s.repo.ListForActor(ctx, actorID, includeInactive)
}

func (s *Service) ListForFacility(ctx context.Context, facilityID uuid.UUID, includeInactive bool) ([]*Assignment, error) {
	return s.repo.ListForFacility(ctx, facilityID, includeInactive)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*FacilityGrant, error) {
	return s.repo.GetByID(ctx, id)
}
