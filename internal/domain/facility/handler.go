package facility

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/domain/rbac"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/auth"
)

type Handler struct {
	svc   *Service
	guard *rbac.Guard
}

func NewHandler(svc *Service, guard *rbac.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/facilities", h.guard.RequirePermission(rbac.SettingsManage))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/activate", h.Activate)
	g.POST("/:id/deactivate", h.Deactivate)
	g.GET("/:id/departments", h.ListDepartments)
	g.POST("/:id/departments", h.CreateDepartment)
	g.POST("/:id/departments/:dept_id/deactivate", h.DeactivateDepartment)
}

func (h *Handler) Create(c echo.Context) error {
	var f Facility
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	if err := h.svc.Create(ctx, auth.ActorIDFromContext(ctx), &f); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	f, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) List(c echo.Context) error {
	includeInactive, _ := strconv.ParseBool(c.QueryParam("include_inactive"))
	items, err := h.svc.List(c.Request().Context(), includeInactive)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var f Facility
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	f.ID = id
	ctx := c.Request().Context()
	updated, err := h.svc.Update(ctx, auth.ActorIDFromContext(ctx), &f)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Activate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	f, err := h.svc.Activate(ctx, auth.ActorIDFromContext(ctx), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	f, err := h.svc.Deactivate(ctx, auth.ActorIDFromContext(ctx), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) ListDepartments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListDepartments(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateDepartment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var d Department
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	d.FacilityID = id
	ctx := c.Request().Context()
	if err := h.svc.CreateDepartment(ctx, auth.ActorIDFromContext(ctx), &d); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) DeactivateDepartment(c echo.Context) error {
	deptID, err := uuid.Parse(c.Param("dept_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if err := h.svc.DeactivateDepartment(ctx, auth.ActorIDFromContext(ctx), deptID); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
