package rbac

import (
	"time"

	"github.com/google/uuid"
)

// Role is a named bundle of permissions. Universal roles hold every
// permission in the catalog. ReadOversight roles hold every read permission
// in addition to their own grants.
type Role struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Universal     bool             `json:"universal"`
	ReadOversight bool             `json:"read_oversight"`
	Permissions   []PermissionCode `json:"permissions"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Has reports whether the role's explicit grants include code.
func (r *Role) Has(code PermissionCode) bool {
	for _, p := range r.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// Snapshot is the audited view of a role.
func (r *Role) Snapshot() map[string]any {
	perms := make([]string, len(r.Permissions))
	for i, p := range r.Permissions {
		perms[i] = string(p)
	}
	return map[string]any{
		"name":           r.Name,
		"description":    r.Description,
		"universal":      r.Universal,
		"read_oversight": r.ReadOversight,
		"permissions":    perms,
	}
}
