package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AminoVic23/PHC-4/internal/domain/facility"
	"github.com/AminoVic23/PHC-4/internal/domain/staff"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/telemetry"
)

// AccessChecker is the part of the grant ledger the selector consults.
type AccessChecker interface {
	HasAccess(ctx context.Context, actorID, facilityID uuid.UUID) (bool, error)
	ListAccessibleFacilities(ctx context.Context, actorID uuid.UUID) ([]*facility.Facility, error)
}

type FacilityGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*facility.Facility, error)
}

// Status describes how Resolve settled a session's facility.
type Status string

const (
	StatusSelected       Status = "selected"
	StatusAutoSelected   Status = "auto_selected"
	StatusNoAccess       Status = "no_access"
	StatusNeedsSelection Status = "needs_selection"
)

type Resolution struct {
	Status   Status               `json:"status"`
	Facility *facility.Facility   `json:"facility,omitempty"`
	Options  []*facility.Facility `json:"options,omitempty"`
}

// Selector binds a login session to one facility. Access is re-checked on
// every read, so a revoked grant or a deactivated facility drops the
// selection on the next request.
type Selector struct {
	store      Store
	grants     AccessChecker
	facilities FacilityGetter
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
	now        func() time.Time
}

func NewSelector(store Store, grants AccessChecker, facilities FacilityGetter, logger zerolog.Logger, metrics *telemetry.Metrics) *Selector {
	return &Selector{
		store:      store,
		grants:     grants,
		facilities: facilities,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Select makes facilityID the session's current facility. It fails with
// ErrDenied unless the actor has access to it.
func (s *Selector) Select(ctx context.Context, actor *staff.Actor, sessionID string, facilityID uuid.UUID) (*facility.Facility, error) {
	if err := checkSession(actor, sessionID); err != nil {
		return nil, err
	}
	ok, err := s.grants.HasAccess(ctx, actor.ID, facilityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.FacilitySelection("denied")
		return nil, fmt.Errorf("facility %s: %w", facilityID, apperr.ErrDenied)
	}
	f, err := s.facilities.Get(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if err := s.bind(ctx, actor, sessionID, f); err != nil {
		return nil, err
	}
	s.metrics.FacilitySelection("selected")
	return f, nil
}

// Current returns the session's facility, or nil when none is selected or
// access to it has been withdrawn since selection.
func (s *Selector) Current(ctx context.Context, actor *staff.Actor, sessionID string) (*facility.Facility, error) {
	if err := checkSession(actor, sessionID); err != nil {
		return nil, err
	}
	fc, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fc.ActorID != actor.ID {
		return nil, s.drop(ctx, sessionID, "actor_mismatch")
	}

	ok, err := s.grants.HasAccess(ctx, actor.ID, fc.FacilityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info().
			Str("actor_id", actor.ID.String()).
			Str("facility_id", fc.FacilityID.String()).
			Msg("facility access withdrawn, clearing selection")
		return nil, s.drop(ctx, sessionID, "revoked")
	}

	f, err := s.facilities.Get(ctx, fc.FacilityID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, s.drop(ctx, sessionID, "revoked")
	}
	return f, err
}

// Accessible lists the facilities the actor may select, ordered by name.
func (s *Selector) Accessible(ctx context.Context, actor *staff.Actor) ([]*facility.Facility, error) {
	if !actor.IsActive() {
		return nil, apperr.ErrUnauthenticated
	}
	return s.grants.ListAccessibleFacilities(ctx, actor.ID)
}

func (s *Selector) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.store.Delete(ctx, sessionID)
}

// Resolve settles the session's facility: the current selection when still
// valid, otherwise the only accessible facility when there is exactly one.
func (s *Selector) Resolve(ctx context.Context, actor *staff.Actor, sessionID string) (*Resolution, error) {
	cur, err := s.Current(ctx, actor, sessionID)
	if err != nil {
		return nil, err
	}
	if cur != nil {
		return &Resolution{Status: StatusSelected, Facility: cur}, nil
	}

	options, err := s.grants.ListAccessibleFacilities(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	switch len(options) {
	case 0:
		s.metrics.FacilitySelection(string(StatusNoAccess))
		return &Resolution{Status: StatusNoAccess}, nil
	case 1:
		if err := s.bind(ctx, actor, sessionID, options[0]); err != nil {
			return nil, err
		}
		s.metrics.FacilitySelection(string(StatusAutoSelected))
		return &Resolution{Status: StatusAutoSelected, Facility: options[0]}, nil
	}
	return &Resolution{Status: StatusNeedsSelection, Options: options}, nil
}

func (s *Selector) bind(ctx context.Context, actor *staff.Actor, sessionID string, f *facility.Facility) error {
	return s.store.Set(ctx, &FacilityContext{
		SessionID:  sessionID,
		ActorID:    actor.ID,
		FacilityID: f.ID,
		SelectedAt: s.now().UTC(),
	})
}

func (s *Selector) drop(ctx context.Context, sessionID, outcome string) error {
	s.metrics.FacilitySelection(outcome)
	return s.store.Delete(ctx, sessionID)
}

func checkSession(actor *staff.Actor, sessionID string) error {
	if !actor.IsActive() {
		return apperr.ErrUnauthenticated
	}
	if sessionID == "" {
		return fmt.Errorf("no session id: %w", apperr.ErrUnauthenticated)
	}
	return nil
}
