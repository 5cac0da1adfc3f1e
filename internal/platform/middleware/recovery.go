package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/AminoVic23/PHC-4/internal/platform/auth"
)

// Recovery turns a handler panic into a 500 and logs the route, the acting
// identity and the stack. The panic value never reaches the client.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				ctx := c.Request().Context()
				evt := logger.Error().
					Str("request_id", RequestIDFromContext(ctx)).
					Str("method", c.Request().Method).
					Str("route", c.Path()).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack())
				if id := auth.ActorIDFromContext(ctx); id != uuid.Nil {
					evt = evt.Str("actor_id", id.String())
				}
				evt.Msg("panic recovered")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}
