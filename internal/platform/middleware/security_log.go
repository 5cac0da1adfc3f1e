package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/AminoVic23/PHC-4/internal/platform/auth"
	"github.com/AminoVic23/PHC-4/internal/platform/telemetry"
)

// SecurityLog emits a security_event log line for every request rejected with
// 401 or 403. Rejections are not mutations, so they never reach the audit log.
func SecurityLog(logger zerolog.Logger, metrics *telemetry.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			if status != http.StatusUnauthorized && status != http.StatusForbidden {
				return err
			}

			metrics.SecurityEvent(status)
			req := c.Request()
			rid, _ := c.Get("request_id").(string)
			evt := logger.Warn().
				Str("type", "security_event").
				Str("request_id", rid).
				Int("status", status).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("remote_ip", c.RealIP())
			if id := auth.ActorIDFromContext(req.Context()); id != uuid.Nil {
				evt = evt.Str("actor_id", id.String())
			}
			evt.Msg("request rejected")
			return err
		}
	}
}
