package session

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/domain/facility"
	"github.com/AminoVic23/PHC-4/internal/domain/staff"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/auth"
)

// RequireFacility resolves the session's facility and puts it on the request
// context. Actors without any accessible facility get 403; actors who must
// still choose between several get 428.
func RequireFacility(sel *Selector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			res, err := sel.Resolve(ctx, staff.ActorFromContext(ctx), auth.SessionIDFromContext(ctx))
			if err != nil {
				return apperr.HTTP(err)
			}
			switch res.Status {
			case StatusNoAccess:
				return apperr.HTTP(apperr.ErrDenied)
			case StatusNeedsSelection:
				return echo.NewHTTPError(http.StatusPreconditionRequired, "facility selection required")
			}
			c.SetRequest(c.Request().WithContext(facility.WithCurrent(ctx, res.Facility)))
			return next(c)
		}
	}
}
