package facility

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AminoVic23/PHC-4/internal/domain/audit"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

// -- Mock Repository --

type mockRepo struct {
	facilities  map[uuid.UUID]*Facility
	departments map[uuid.UUID]*Department
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		facilities:  make(map[uuid.UUID]*Facility),
		departments: make(map[uuid.UUID]*Department),
	}
}

func (m *mockRepo) Create(_ context.Context, f *Facility) error {
	for _, existing := range m.facilities {
		if existing.Code == f.Code {
			return fmt.Errorf("facility code: %w", apperr.ErrDuplicateName)
		}
	}
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	f.UpdatedAt = time.Now()
	cp := *f
	m.facilities[f.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Facility, error) {
	f, ok := m.facilities[id]
	if !ok {
		return nil, fmt.Errorf("facility: %w", apperr.ErrNotFound)
	}
	cp := *f
	return &cp, nil
}

func (m *mockRepo) GetByCode(ctx context.Context, code string) (*Facility, error) {
	for id, f := range m.facilities {
		if f.Code == code {
			return m.GetByID(ctx, id)
		}
	}
	return nil, fmt.Errorf("facility: %w", apperr.ErrNotFound)
}

func (m *mockRepo) Update(_ context.Context, f *Facility) error {
	if _, ok := m.facilities[f.ID]; !ok {
		return fmt.Errorf("facility: %w", apperr.ErrNotFound)
	}
	cp := *f
	m.facilities[f.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, includeInactive bool) ([]*Facility, error) {
	var out []*Facility
	for _, f := range m.facilities {
		if includeInactive || f.Active {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockRepo) CreateDepartment(_ context.Context, d *Department) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	cp := *d
	m.departments[d.ID] = &cp
	return nil
}

func (m *mockRepo) GetDepartment(_ context.Context, id uuid.UUID) (*Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, fmt.Errorf("department: %w", apperr.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) SetDepartmentActive(_ context.Context, id uuid.UUID, active bool) error {
	d, ok := m.departments[id]
	if !ok {
		return fmt.Errorf("department: %w", apperr.ErrNotFound)
	}
	d.Active = active
	return nil
}

func (m *mockRepo) ListDepartments(_ context.Context, facilityID uuid.UUID) ([]*Department, error) {
	var out []*Department
	for _, d := range m.departments {
		if d.FacilityID == facilityID {
			out = append(out, d)
		}
	}
	return out, nil
}

type recordingAuditor struct {
	events []audit.Event
}

func (a *recordingAuditor) Within(ctx context.Context, actorID uuid.UUID, fn func(ctx context.Context) (audit.Event, error)) (*audit.Entry, error) {
	if actorID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	ev, err := fn(ctx)
	if err != nil || ev.IsZero() {
		return nil, err
	}
	a.events = append(a.events, ev)
	return &audit.Entry{ActorID: actorID, Action: ev.Action}, nil
}

var admin = uuid.New()

func newTestService() (*Service, *mockRepo, *recordingAuditor) {
	repo := newMockRepo()
	aud := &recordingAuditor{}
	return NewService(repo, aud), repo, aud
}

func TestCreate(t *testing.T) {
	svc, _, aud := newTestService()
	f := &Facility{Code: "phc001", Name: "Central PHC", Type: "primary"}

	if err := svc.Create(context.Background(), admin, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Code != "PHC001" || !f.Active {
		t.Errorf("unexpected facility: %+v", f)
	}
	if len(aud.events) != 1 || aud.events[0].EntityID != f.ID.String() {
		t.Errorf("expected facility_create audit, got %+v", aud.events)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	tests := []*Facility{
		{Code: "PHC002", Type: "primary"},
		{Code: "PHC002", Name: "X", Type: "clinic"},
		{Code: "P", Name: "X", Type: "primary"},
		{Code: "PHC 002", Name: "X", Type: "primary"},
	}
	for _, f := range tests {
		if err := svc.Create(context.Background(), admin, f); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("%+v: expected ErrInvalid, got %v", f, err)
		}
	}
}

func TestCreate_DuplicateCode(t *testing.T) {
	svc, _, _ := newTestService()
	svc.Create(context.Background(), admin, &Facility{Code: "PHC001", Name: "A", Type: "primary"})

	err := svc.Create(context.Background(), admin, &Facility{Code: "phc001", Name: "B", Type: "primary"})
	if !errors.Is(err, apperr.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestUpdate_AuditsChanges(t *testing.T) {
	svc, _, aud := newTestService()
	f := &Facility{Code: "PHC001", Name: "Central", Type: "primary", Phone: "555-0001"}
	svc.Create(context.Background(), admin, f)

	_, err := svc.Update(context.Background(), admin, &Facility{ID: f.ID, Name: "Central", Type: "primary", Phone: "555-0002"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	last := aud.events[len(aud.events)-1]
	if got := audit.ChangeSummary(last.Before, last.After); fmt.Sprint(got) != "[phone]" {
		t.Errorf("expected [phone], got %v", got)
	}
}

func TestDeactivate_ListAndIdempotent(t *testing.T) {
	svc, _, aud := newTestService()
	ctx := context.Background()
	a := &Facility{Code: "PHC001", Name: "Bravo", Type: "primary"}
	b := &Facility{Code: "PHC002", Name: "Alpha", Type: "secondary"}
	svc.Create(ctx, admin, a)
	svc.Create(ctx, admin, b)

	svc.Deactivate(ctx, admin, a.ID)
	svc.Deactivate(ctx, admin, a.ID)

	active, _ := svc.List(ctx, false)
	if len(active) != 1 || active[0].ID != b.ID {
		t.Errorf("expected only Alpha active, got %v", active)
	}
	all, _ := svc.List(ctx, true)
	if len(all) != 2 || all[0].Name != "Alpha" {
		t.Errorf("expected both ordered by name, got %v", all)
	}
	if len(aud.events) != 3 {
		t.Errorf("expected 2 creates and 1 deactivate audited, got %d", len(aud.events))
	}
}

func TestDepartments(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	f := &Facility{Code: "PHC001", Name: "Central", Type: "primary"}
	svc.Create(ctx, admin, f)

	d := &Department{FacilityID: f.ID, Name: "Laboratory", Type: "clinical"}
	if err := svc.CreateDepartment(ctx, admin, d); err != nil {
		t.Fatalf("create department: %v", err)
	}
	if err := svc.CreateDepartment(ctx, admin, &Department{FacilityID: uuid.New(), Name: "Ghost"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown facility, got %v", err)
	}
	if err := svc.DeactivateDepartment(ctx, admin, d.ID); err != nil {
		t.Fatalf("deactivate department: %v", err)
	}
	items, _ := svc.ListDepartments(ctx, f.ID)
	if len(items) != 1 || items[0].Active {
		t.Errorf("expected one inactive department, got %+v", items)
	}
}

func TestCurrentFromContext(t *testing.T) {
	if CurrentFromContext(context.Background()) != nil {
		t.Error("expected nil without a facility")
	}
	f := &Facility{Code: "PHC001"}
	if got := CurrentFromContext(WithCurrent(context.Background(), f)); got != f {
		t.Error("expected the stored facility")
	}
}
