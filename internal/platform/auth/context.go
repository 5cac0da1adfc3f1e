package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ActorIDKey   contextKey = "actor_id"
	SessionIDKey contextKey = "session_id"
)

// WithIdentity stores the authenticated subject and its session id.
func WithIdentity(ctx context.Context, actorID uuid.UUID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, ActorIDKey, actorID)
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// ActorIDFromContext returns the authenticated actor id, or uuid.Nil when the
// request carries no identity.
func ActorIDFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ActorIDKey).(uuid.UUID)
	return id
}

func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(SessionIDKey).(string)
	return sid
}
