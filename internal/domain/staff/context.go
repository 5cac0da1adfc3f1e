package staff

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/domain/rbac"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/auth"
)

type contextKey string

const actorKey contextKey = "staff_actor"

func WithActor(ctx context.Context, a *Actor) context.Context {
	ctx = context.WithValue(ctx, actorKey, a)
	return rbac.WithSubject(ctx, a)
}

// ActorFromContext returns the actor resolved for the request, or nil.
func ActorFromContext(ctx context.Context) *Actor {
	a, _ := ctx.Value(actorKey).(*Actor)
	return a
}

// ResolveActor loads the actor named by the authenticated subject and puts it
// on the request context for guards and handlers. Requests without an
// identity pass through untouched; the guards reject them. A subject that no
// longer exists is rejected with 401.
func ResolveActor(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			id := auth.ActorIDFromContext(ctx)
			if id == uuid.Nil {
				return next(c)
			}
			a, err := svc.Get(ctx, id)
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.HTTP(apperr.ErrUnauthenticated)
			}
			if err != nil {
				return apperr.HTTP(err)
			}
			c.SetRequest(c.Request().WithContext(WithActor(ctx, a)))
			return next(c)
		}
	}
}
