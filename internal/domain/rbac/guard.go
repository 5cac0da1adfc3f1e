package rbac

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/telemetry"
)

// Subject is the authenticated principal a decision is made for.
// Implementations must tolerate a nil receiver.
type Subject interface {
	SubjectRoleID() uuid.UUID
	IsActive() bool
}

type contextKey string

const subjectKey contextKey = "rbac_subject"

func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, subjectKey, s)
}

func SubjectFromContext(ctx context.Context) Subject {
	s, _ := ctx.Value(subjectKey).(Subject)
	return s
}

type Reason string

const (
	ReasonUnauthenticated   Reason = "unauthenticated"
	ReasonUnknownRole       Reason = "unknown_role"
	ReasonRoleMismatch      Reason = "role_mismatch"
	ReasonRoleMatch         Reason = "role_match"
	ReasonUniversal         Reason = "universal"
	ReasonReadOversight     Reason = "read_oversight"
	ReasonGranted           Reason = "granted"
	ReasonMissingPermission Reason = "missing_permission"
)

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

// Err converts a deny into ErrUnauthenticated or ErrDenied.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonUnauthenticated:
		return apperr.ErrUnauthenticated
	default:
		return apperr.ErrDenied
	}
}

// Requirement is either a permission or a role name.
type Requirement struct {
	permission PermissionCode
	roles      []string
}

func NeedPermission(code PermissionCode) Requirement {
	return Requirement{permission: code}
}

// NeedRole is satisfied when the subject's role has one of names.
func NeedRole(names ...string) Requirement {
	return Requirement{roles: names}
}

func (r Requirement) kind() string {
	if r.permission != "" {
		return "permission"
	}
	return "role"
}

// Guard decides whether a subject may proceed. It has no side effects beyond
// metrics.
type Guard struct {
	roles   Repository
	metrics *telemetry.Metrics
}

func NewGuard(roles Repository, metrics *telemetry.Metrics) *Guard {
	return &Guard{roles: roles, metrics: metrics}
}

// Authorize evaluates req for subject. A store failure is returned as an
// error and never as an allow.
func (g *Guard) Authorize(ctx context.Context, subject Subject, req Requirement) (Decision, error) {
	d, err := g.decide(ctx, subject, req)
	if err != nil {
		return Decision{}, err
	}
	g.metrics.Decision(req.kind(), d.Allowed)
	return d, nil
}

func (g *Guard) decide(ctx context.Context, subject Subject, req Requirement) (Decision, error) {
	if subject == nil || !subject.IsActive() {
		return Decision{Reason: ReasonUnauthenticated}, nil
	}
	// No role holds an unregistered code, so the universal and read-oversight
	// shortcuts must not grant one either.
	if req.permission != "" && !Known(req.permission) {
		return Decision{Reason: ReasonMissingPermission}, nil
	}

	role, err := g.roles.GetByID(ctx, subject.SubjectRoleID())
	if errors.Is(err, apperr.ErrNotFound) {
		return Decision{Reason: ReasonUnknownRole}, nil
	}
	if err != nil {
		return Decision{}, err
	}

	if req.permission == "" {
		for _, name := range req.roles {
			if role.Name == name {
				return Decision{Allowed: true, Reason: ReasonRoleMatch}, nil
			}
		}
		return Decision{Reason: ReasonRoleMismatch}, nil
	}

	switch {
	case role.Universal:
		return Decision{Allowed: true, Reason: ReasonUniversal}, nil
	case role.ReadOversight && IsRead(req.permission):
		return Decision{Allowed: true, Reason: ReasonReadOversight}, nil
	case role.Has(req.permission):
		return Decision{Allowed: true, Reason: ReasonGranted}, nil
	}
	return Decision{Reason: ReasonMissingPermission}, nil
}

// RequirePermission guards a route with a permission check against the
// subject resolved for the request.
func (g *Guard) RequirePermission(code PermissionCode) echo.MiddlewareFunc {
	return g.require(NeedPermission(code))
}

func (g *Guard) RequireRole(name string) echo.MiddlewareFunc {
	return g.require(NeedRole(name))
}

func (g *Guard) RequireAnyRole(names ...string) echo.MiddlewareFunc {
	return g.require(NeedRole(names...))
}

func (g *Guard) require(req Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			d, err := g.Authorize(ctx, SubjectFromContext(ctx), req)
			if err != nil {
				return apperr.HTTP(err)
			}
			if !d.Allowed {
				return apperr.HTTP(d.Err())
			}
			return next(c)
		}
	}
}
