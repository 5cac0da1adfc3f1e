package facility

import (
	"time"

	"github.com/google/uuid"
)

var validTypes = map[string]bool{
	"primary":   true,
	"secondary": true,
	"tertiary":  true,
	"specialty": true,
}

type Facility struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (f *Facility) Snapshot() map[string]any {
	return map[string]any{
		"code":    f.Code,
		"name":    f.Name,
		"type":    f.Type,
		"address": f.Address,
		"phone":   f.Phone,
		"active":  f.Active,
	}
}

type Department struct {
	ID         uuid.UUID `json:"id"`
	FacilityID uuid.UUID `json:"facility_id"`
	Name       string    `json:"name"`
	Type       string    `json:"type,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

func (d *Department) Snapshot() map[string]any {
	return map[string]any{
		"facility_id": d.FacilityID.String(),
		"name":        d.Name,
		"type":        d.Type,
		"active":      d.Active,
	}
}
