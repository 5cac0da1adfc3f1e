package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/domain/audit"
	"github.com/AminoVic23/PHC-4/internal/domain/staff"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/auth"
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*staff.Actor, error)
}

type TokenIssuer interface {
	Issue(actorID uuid.UUID) (*auth.Issued, error)
}

type Handler struct {
	selector *Selector
	staff    Authenticator
	issuer   TokenIssuer
	auditor  audit.Auditor
}

func NewHandler(selector *Selector, authn Authenticator, issuer TokenIssuer, auditor audit.Auditor) *Handler {
	return &Handler{selector: selector, staff: authn, issuer: issuer, auditor: auditor}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/sessions", h.Login)
	api.DELETE("/sessions", h.Logout)

	api.GET("/session/facilities", h.ListFacilities)
	api.GET("/session/facility", h.Current)
	api.POST("/session/facility", h.Select)
	api.DELETE("/session/facility", h.Clear)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	*auth.Issued
	Actor    *staff.Actor `json:"actor"`
	Facility *Resolution  `json:"facility"`
}

// Login verifies credentials and issues a bearer token whose jti is the new
// session id. The facility is resolved straight away so single-facility staff
// need no further step.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}
	ctx := c.Request().Context()
	actor, err := h.staff.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return apperr.HTTP(err)
	}

	var issued *auth.Issued
	_, err = h.auditor.Within(ctx, actor.ID, func(ctx context.Context) (audit.Event, error) {
		iss, err := h.issuer.Issue(actor.ID)
		if err != nil {
			return audit.Event{}, err
		}
		issued = iss
		return audit.Event{Action: "login", EntityType: "session", EntityID: issued.SessionID}, nil
	})
	if err != nil {
		return apperr.HTTP(err)
	}

	res, err := h.selector.Resolve(ctx, actor, issued.SessionID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, loginResponse{Issued: issued, Actor: actor, Facility: res})
}

// Logout clears the session's facility selection. The bearer token itself
// stays valid until it expires.
func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	actor := staff.ActorFromContext(ctx)
	if !actor.IsActive() {
		return apperr.HTTP(apperr.ErrUnauthenticated)
	}
	sid := auth.SessionIDFromContext(ctx)
	_, err := h.auditor.Within(ctx, actor.ID, func(ctx context.Context) (audit.Event, error) {
		if err := h.selector.Clear(ctx, sid); err != nil {
			return audit.Event{}, err
		}
		return audit.Event{Action: "logout", EntityType: "session", EntityID: sid}, nil
	})
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListFacilities(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.selector.Accessible(ctx, staff.ActorFromContext(ctx))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) Current(c echo.Context) error {
	ctx := c.Request().Context()
	res, err := h.selector.Resolve(ctx, staff.ActorFromContext(ctx), auth.SessionIDFromContext(ctx))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

type selectRequest struct {
	FacilityID uuid.UUID `json:"facility_id"`
}

func (h *Handler) Select(c echo.Context) error {
	var req selectRequest
	if err := c.Bind(&req); err != nil || req.FacilityID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "facility_id is required")
	}
	ctx := c.Request().Context()
	f, err := h.selector.Select(ctx, staff.ActorFromContext(ctx), auth.SessionIDFromContext(ctx), req.FacilityID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, &Resolution{Status: StatusSelected, Facility: f})
}

func (h *Handler) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	if !staff.ActorFromContext(ctx).IsActive() {
		return apperr.HTTP(apperr.ErrUnauthenticated)
	}
	if err := h.selector.Clear(ctx, auth.SessionIDFromContext(ctx)); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
