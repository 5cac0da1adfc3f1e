package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/platform/auth"
)

// RequestMeta is the transport metadata attached to audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
	SessionID string
	RequestID string
}

const requestMetaKey contextKey = "request_meta"

func WithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey, m)
}

// RequestMetaFromContext returns the metadata captured for the request, or the
// zero value outside an HTTP request.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	m, _ := ctx.Value(requestMetaKey).(RequestMeta)
	return m
}

// CaptureRequestMeta records client address, user agent, session id and
// request id. It must run after authentication so the session id is known.
func CaptureRequestMeta() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()
			ua := req.UserAgent()
			if len(ua) > 512 {
				ua = ua[:512]
			}
			ctx = WithRequestMeta(ctx, RequestMeta{
				IP:        c.RealIP(),
				UserAgent: ua,
				SessionID: auth.SessionIDFromContext(ctx),
				RequestID: RequestIDFromContext(ctx),
			})
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}
