package rbac

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/auth"
)

type Handler struct {
	svc   *Service
	guard *Guard
}

func NewHandler(svc *Service, guard *Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", h.guard.RequirePermission(UserManage))
	g.GET("/permissions", h.ListPermissions)
	g.GET("/roles", h.ListRoles)
	g.POST("/roles", h.CreateRole)
	g.GET("/roles/:id", h.GetRole)
	g.PUT("/roles/:id/permissions/:code", h.GrantPermission)
	g.DELETE("/roles/:id/permissions/:code", h.RevokePermission)
	g.PUT("/roles/:id/flags", h.SetFlags)
}

func (h *Handler) ListPermissions(c echo.Context) error {
	return c.JSON(http.StatusOK, ListPermissions())
}

func (h *Handler) ListRoles(c echo.Context) error {
	roles, err := h.svc.ListRoles(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, roles)
}

type createRoleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) CreateRole(c echo.Context) error {
	var req createRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	role, err := h.svc.CreateRole(ctx, auth.ActorIDFromContext(ctx), req.Name, req.Description)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, role)
}

func (h *Handler) GetRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	role, err := h.svc.GetRole(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, role)
}

func (h *Handler) GrantPermission(c echo.Context) error {
	return h.changePermission(c, h.svc.GrantPermission)
}

func (h *Handler) RevokePermission(c echo.Context) error {
	return h.changePermission(c, h.svc.RevokePermission)
}

func (h *Handler) changePermission(c echo.Context, change func(ctx context.Context, by, roleID uuid.UUID, code PermissionCode) error) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if err := change(ctx, auth.ActorIDFromContext(ctx), id, PermissionCode(c.Param("code"))); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type flagsRequest struct {
	Universal     bool `json:"universal"`
	ReadOversight bool `json:"read_oversight"`
}

func (h *Handler) SetFlags(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req flagsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	role, err := h.svc.SetFlags(ctx, auth.ActorIDFromContext(ctx), id, req.Universal, req.ReadOversight)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, role)
}
