package grant

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/domain/facility"
	"github.com/AminoVic23/PHC-4/internal/domain/rbac"
	"github.com/AminoVic23/PHC-4/internal/domain/staff"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

type Handler struct {
	svc   *Service
	guard *rbac.Guard
}

func NewHandler(svc *Service, guard *rbac.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

// RegisterRoutes mounts the grant administration routes on api and the
// facility-scoped staff listing on scoped, which must already carry the
// current-facility middleware.
func (h *Handler) RegisterRoutes(api, scoped *echo.Group) {
	g := api.Group("/grants", h.guard.RequirePermission(rbac.UserManage))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id/capabilities", h.UpdateCapabilities)
	g.POST("/:id/revoke", h.Revoke)
	g.POST("/:id/reactivate", h.Reactivate)

	scoped.GET("/facility/staff", h.FacilityStaff, RequireCapability(h.svc, CanManageStaff))
}

type createRequest struct {
	ActorID      uuid.UUID     `json:"actor_id"`
	FacilityID   uuid.UUID     `json:"facility_id"`
	Capabilities *Capabilities `json:"capabilities"`
	Notes        string        `json:"notes"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	caps := DefaultCapabilities()
	if req.Capabilities != nil {
		caps = *req.Capabilities
	}
	g, err := h.svc.Grant(c.Request().Context(), req.ActorID, req.FacilityID, caps, actorID(c), req.Notes)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	g, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, g)
}

// List requires exactly one of actor_id or facility_id.
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	includeInactive, _ := strconv.ParseBool(c.QueryParam("include_inactive"))
	actorParam, facilityParam := c.QueryParam("actor_id"), c.QueryParam("facility_id")

	switch {
	case actorParam != "" && facilityParam == "":
		id, err := uuid.Parse(actorParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid actor_id")
		}
		items, err := h.svc.ListForActor(ctx, id, includeInactive)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, map[string]any{"data": items})
	case facilityParam != "" && actorParam == "":
		id, err := uuid.Parse(facilityParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid facility_id")
		}
		items, err := h.svc.ListForFacility(ctx, id, includeInactive)
		if err != nil {
			return apperr.HTTP(err)
		}
		return c.JSON(http.StatusOK, map[string]any{"data": items})
	}
	return echo.NewHTTPError(http.StatusBadRequest, "exactly one of actor_id or facility_id is required")
}

func (h *Handler) UpdateCapabilities(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var caps Capabilities
	if err := c.Bind(&caps); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	g, err := h.svc.UpdateCapabilities(c.Request().Context(), actorID(c), id, caps)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) Revoke(c echo.Context) error {
	return h.transition(c, h.svc.Revoke)
}

func (h *Handler) Reactivate(c echo.Context) error {
	return h.transition(c, h.svc.Reactivate)
}

func (h *Handler) transition(c echo.Context, fn func(ctx context.Context, by, id uuid.UUID) (*FacilityGrant, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	g, err := fn(c.Request().Context(), actorID(c), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, g)
}

// FacilityStaff lists the staff assigned to the caller's current facility.
func (h *Handler) FacilityStaff(c echo.Context) error {
	ctx := c.Request().Context()
	f := facility.CurrentFromContext(ctx)
	if f == nil {
		return apperr.HTTP(apperr.ErrDenied)
	}
	includeInactive, _ := strconv.ParseBool(c.QueryParam("include_inactive"))
	items, err := h.svc.ListForFacility(ctx, f.ID, includeInactive)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"facility": f, "data": items})
}

func actorID(c echo.Context) uuid.UUID {
	if a := staff.ActorFromContext(c.Request().Context()); a != nil {
		return a.ID
	}
	return uuid.Nil
}
