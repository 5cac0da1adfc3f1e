package grant

import (
	"time"

	"github.com/google/uuid"
)

// Capability names one boolean flag on a facility grant.
type Capability string

const (
	CanAccess         Capability = "can_access"
	CanManageStaff    Capability = "can_manage_staff"
	CanManageFacility Capability = "can_manage_facility"
	CanViewReports    Capability = "can_view_reports"
	CanExportData     Capability = "can_export_data"
)

// Capabilities are the per-facility flags. CanAccess is the master switch:
// without it no other flag takes effect.
type Capabilities struct {
	CanAccess         bool `json:"can_access"`
	CanManageStaff    bool `json:"can_manage_staff"`
	CanManageFacility bool `json:"can_manage_facility"`
	CanViewReports    bool `json:"can_view_reports"`
	CanExportData     bool `json:"can_export_data"`
}

func DefaultCapabilities() Capabilities {
	return Capabilities{CanAccess: true, CanViewReports: true}
}

// Has reports whether the flag for c is set. Unknown capabilities are never
// held.
func (c Capabilities) Has(cap Capability) bool {
	switch cap {
	case CanAccess:
		return c.CanAccess
	case CanManageStaff:
		return c.CanManageStaff
	case CanManageFacility:
		return c.CanManageFacility
	case CanViewReports:
		return c.CanViewReports
	case CanExportData:
		return c.CanExportData
	}
	return false
}

// FacilityGrant binds an actor to a facility. Revoked grants stay on record
// with Active false; at most one active grant exists per actor and facility.
type FacilityGrant struct {
	ID         uuid.UUID `json:"id"`
	ActorID    uuid.UUID `json:"actor_id"`
	FacilityID uuid.UUID `json:"facility_id"`
	Capabilities
	Active     bool       `json:"active"`
	AssignedAt time.Time  `json:"assigned_at"`
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	RevokedBy  *uuid.UUID `json:"revoked_by,omitempty"`
}

func (g *FacilityGrant) Snapshot() map[string]any {
	return map[string]any{
		"actor_id":            g.ActorID.String(),
		"facility_id":         g.FacilityID.String(),
		"can_access":          g.CanAccess,
		"can_manage_staff":    g.CanManageStaff,
		"can_manage_facility": g.CanManageFacility,
		"can_view_reports":    g.CanViewReports,
		"can_export_data":     g.CanExportData,
		"active":              g.Active,
		"notes":               g.Notes,
	}
}

// Assignment is a grant joined with the staff member it belongs to.
type Assignment struct {
	FacilityGrant
	ActorName   string `json:"actor_name"`
	ActorEmail  string `json:"actor_email"`
	ActorActive bool   `json:"actor_active"`
}
