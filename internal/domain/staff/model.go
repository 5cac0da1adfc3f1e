package staff

import (
	"time"

	"github.com/google/uuid"
)

// Actor is an authenticated staff member. Each actor holds exactly one role.
// The department is informational and plays no part in authorization.
type Actor struct {
	ID                uuid.UUID  `json:"id"`
	EmployeeNo        string     `json:"employee_no,omitempty"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	RoleID            uuid.UUID  `json:"role_id"`
	DepartmentID      *uuid.UUID `json:"department_id,omitempty"`
	Active            bool       `json:"active"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (a *Actor) SubjectRoleID() uuid.UUID {
	if a == nil {
		return uuid.Nil
	}
	return a.RoleID
}

func (a *Actor) IsActive() bool {
	return a != nil && a.Active
}

// Snapshot is the audited view of an actor. It never includes the credential
// hash.
func (a *Actor) Snapshot() map[string]any {
	// department_id is always present so assigning one shows in the change
	// summary.
	m := map[string]any{
		"employee_no":   a.EmployeeNo,
		"name":          a.Name,
		"email":         a.Email,
		"role_id":       a.RoleID.String(),
		"active":        a.Active,
		"department_id": nil,
	}
	if a.DepartmentID != nil {
		m["department_id"] = a.DepartmentID.String()
	}
	return m
}

type EnrollInput struct {
	EmployeeNo   string     `json:"employee_no"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Password     string     `json:"password"`
	RoleID       uuid.UUID  `json:"role_id"`
	DepartmentID *uuid.UUID `json:"department_id"`
}
