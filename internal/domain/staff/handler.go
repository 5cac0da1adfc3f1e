package staff

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/domain/rbac"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/pkg/pagination"
)

type Handler struct {
	svc   *Service
	guard *rbac.Guard
}

func NewHandler(svc *Service, guard *rbac.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", h.guard.RequirePermission(rbac.StaffManage))
	read.GET("/staff", h.List)
	read.GET("/staff/:id", h.Get)
	read.PUT("/staff/:id", h.UpdateProfile)

	admin := api.Group("", h.guard.RequirePermission(rbac.UserManage))
	admin.POST("/staff", h.Enroll)
	admin.PUT("/staff/:id/role", h.ChangeRole)
	admin.POST("/staff/:id/deactivate", h.Deactivate)
	admin.POST("/staff/:id/reactivate", h.Reactivate)

	api.GET("/me", h.Me)
	api.PUT("/me/password", h.ChangePassword)
}

func (h *Handler) Enroll(c echo.Context) error {
	var in EnrollInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Enroll(c.Request().Context(), actorID(c), in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg, err := pagination.Default.Parse(c)
	if err != nil {
		return err
	}
	activeOnly, _ := strconv.ParseBool(c.QueryParam("active"))
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset, activeOnly)
	if err != nil {
		return apperr.HTTP(err)
	}
	return pagination.Write(c, items, total, pg)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in ProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.UpdateProfile(c.Request().Context(), actorID(c), id, in)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

type changeRoleRequest struct {
	RoleID uuid.UUID `json:"role_id"`
}

func (h *Handler) ChangeRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.ChangeRole(c.Request().Context(), actorID(c), id, req.RoleID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Deactivate(c echo.Context) error {
	return h.setActive(c, h.svc.Deactivate)
}

func (h *Handler) Reactivate(c echo.Context) error {
	return h.setActive(c, h.svc.Reactivate)
}

func (h *Handler) setActive(c echo.Context, fn func(ctx context.Context, by, id uuid.UUID) (*Actor, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := fn(c.Request().Context(), actorID(c), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Me(c echo.Context) error {
	a := ActorFromContext(c.Request().Context())
	if !a.IsActive() {
		return apperr.HTTP(apperr.ErrUnauthenticated)
	}
	return c.JSON(http.StatusOK, a)
}

type changePasswordRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

func (h *Handler) ChangePassword(c echo.Context) error {
	a := ActorFromContext(c.Request().Context())
	if !a.IsActive() {
		return apperr.HTTP(apperr.ErrUnauthenticated)
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.RotateCredential(c.Request().Context(), a.ID, req.Current, req.New); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// actorID is the acting staff member, or uuid.Nil when none was resolved.
func actorID(c echo.Context) uuid.UUID {
	if a := ActorFromContext(c.Request().Context()); a != nil {
		return a.ID
	}
	return uuid.Nil
}
