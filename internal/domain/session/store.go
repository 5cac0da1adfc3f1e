package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FacilityContext is the facility an actor selected for one login session.
type FacilityContext struct {
	SessionID  string    `json:"session_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	FacilityID uuid.UUID `json:"facility_id"`
	SelectedAt time.Time `json:"selected_at"`
}

// Store keeps facility contexts keyed by session id. Get returns
// apperr.ErrNotFound when nothing is stored or the entry expired.
type Store interface {
	Get(ctx context.Context, sessionID string) (*FacilityContext, error)
	Set(ctx context.Context, fc *FacilityContext) error
	Delete(ctx context.Context, sessionID string) error
}
