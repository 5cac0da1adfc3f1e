package auth

import (
	"github.com/labstack/echo/v4"
)

// publicRoutes bypass authentication. Keys are "METHOD path-template".
var publicRoutes = map[string]bool{
	"GET /health":            true,
	"GET /health/db":         true,
	"GET /metrics":           true,
	"POST /api/v1/sessions": true,
}

// AuthSkipper reports whether the matched route is public.
func AuthSkipper(c echo.Context) bool {
	return publicRoutes[c.Request().Method+" "+c.Path()]
}
