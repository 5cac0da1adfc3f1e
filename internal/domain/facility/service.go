package facility

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/AminoVic23/PHC-4/internal/domain/audit"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{1,9}$`)

type Service struct {
	repo    Repository
	auditor audit.Auditor
}

func NewService(repo Repository, auditor audit.Auditor) *Service {
	return &Service{repo: repo, auditor: auditor}
}

func (s *Service) Create(ctx context.Context, by uuid.UUID, f *Facility) error {
	f.Code = strings.ToUpper(strings.TrimSpace(f.Code))
	if err := validate(f); err != nil {
		return err
	}
	if !codePattern.MatchString(f.Code) {
		return apperr.Invalid("code must be 2 to 10 uppercase letters, digits or dashes")
	}
	f.Active = true
	_, err := s.auditor.Within(ctx, by, func(ctx context.Context) (audit.Event, error) {
		if err := s.repo.Create(ctx, f); err != nil {
			return audit.Event{}, err
		}
		return audit.Event{Action: "facility_create", EntityType: "facility", EntityID: f.ID.String(), After: f.Snapshot()}, nil
	})
	return err
}

// Update changes descriptive fields. The code and active flag are not
// editable here.
func (s *Service) Update(ctx context.Context, by uuid.UUID, f *Facility) (*Facility, error) {
	if err := validate(f); err != nil {
		return nil, err
	}
	return s.mutate(ctx, by, f.ID, "facility_update", func(cur *Facility) bool {
		cur.Name = strings.TrimSpace(f.Name)
		cur.Type = f.Type
		cur.Address = strings.TrimSpace(f.Address)
		cur.Phone = strings.TrimSpace(f.Phone)
		return true
	})
}

func (s *Service) Activate(ctx context.Context, by, id uuid.UUID) (*Facility, error) {
	return s.setActive(ctx, by, id, true)
}

// Deactivate takes a facility out of service. Grants to it stay on record but
// no longer give access.
func (s *Service) Deactivate(ctx context.Context, by, id uuid.UUID) (*Facility, error) {
	return s.setActive(ctx, by, id, false)
}

func (s *Service) setActive(ctx context.Context, by, id uuid.UUID, active bool) (*Facility, error) {
	action := "facility_deactivate"
	if active {
		action = "facility_activate"
	}
	return s.mutate(ctx, by, id, action, func(cur *Facility) bool {
		if cur.Active == active {
			return false
		}
		cur.Active = active
		return true
	})
}

func (s *Service) mutate(ctx context.Context, by, id uuid.UUID, action string, change func(f *Facility) bool) (*Facility, error) {
	var out *Facility
	_, err := s.auditor.Within(ctx, by, func(ctx context.Context) (audit.Event, error) {
		cur, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return audit.Event{}, err
		}
		out = cur
		before := cur.Snapshot()
		if !change(cur) {
			return audit.Event{}, nil
		}
		if err := s.repo.Update(ctx, cur); err != nil {
			return audit.Event{}, err
		}
		return audit.Event{Action: action, EntityType: "facility", EntityID: id.String(), Before: before, After: cur.Snapshot()}, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Facility, error) {
	return s.repo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]*Facility, error) {
	return s.repo.List(ctx, includeInactive)
}

// -- Departments --

func (s *Service) CreateDepartment(ctx context.Context, by uuid.UUID, d *Department) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return apperr.Invalid("department name is required")
	}
	d.Active = true
	_, err := s.auditor.Within(ctx, by, func(ctx context.Context) (audit.Event, error) {
		if _, err := s.repo.GetByID(ctx, d.FacilityID); err != nil {
			return audit.Event{}, err
		}
		if err := s.repo.CreateDepartment(ctx, d); err != nil {
			return audit.Event{}, err
		}
		return audit.Event{Action: "department_create", EntityType: "department", EntityID: d.ID.String(), After: d.Snapshot()}, nil
	})
	return err
}

func (s *Service) DeactivateDepartment(ctx context.Context, by, id uuid.UUID) error {
	_, err := s.auditor.Within(ctx, by, func(ctx context.Context) (audit.Event, error) {
		d, err := s.repo.GetDepartment(ctx, id)
		if err != nil || !d.Active {
			return audit.Event{}, err
		}
		before := d.Snapshot()
		if err := s.repo.SetDepartmentActive(ctx, id, false); err != nil {
			return audit.Event{}, err
		}
		d.Active = false
		return audit.Event{Action: "department_deactivate", EntityType: "department", EntityID: id.String(), Before: before, After: d.Snapshot()}, nil
	})
	return err
}

func (s *Service) ListDepartments(ctx context.Context, facilityID uuid.UUID) ([]*Department, error) {
	return s.repo.ListDepartments(ctx, facilityID)
}

func validate(f *Facility) error {
	if strings.TrimSpace(f.Name) == "" {
		return apperr.Invalid("name is required")
	}
	if !validTypes[f.Type] {
		return apperr.Invalid("type must be primary, secondary, tertiary or specialty")
	}
	return nil
}
