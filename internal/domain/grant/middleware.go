package grant

import (
	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/domain/facility"
	"github.com/AminoVic23/PHC-4/internal/domain/staff"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

// RequireCapability checks cap on the facility selected for the request. It
// must run after the session's RequireFacility middleware.
func RequireCapability(svc *Service, cap Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			actor := staff.ActorFromContext(ctx)
			if !actor.IsActive() {
				return apperr.HTTP(apperr.ErrUnauthenticated)
			}
			f := facility.CurrentFromContext(ctx)
			if f == nil {
				return apperr.HTTP(apperr.ErrDenied)
			}
			ok, err := svc.HasCapability(ctx, actor.ID, f.ID, cap)
			if err != nil {
				return apperr.HTTP(err)
			}
			if !ok {
				return apperr.HTTP(apperr.ErrDenied)
			}
			return next(c)
		}
	}
}
