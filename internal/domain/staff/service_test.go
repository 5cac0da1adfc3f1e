package staff

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/AminoVic23/PHC-4/internal/domain/audit"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	actors map[uuid.UUID]*Actor
}

func newMockRepo() *mockRepo {
	return &mockRepo{actors: make(map[uuid.UUID]*Actor)}
}

func (m *mockRepo) Create(_ context.Context, a *Actor) error {
	for _, existing := range m.actors {
		if existing.Email == a.Email {
			return fmt.Errorf("staff email: %w", apperr.ErrDuplicateName)
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	cp := *a
	m.actors[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Actor, error) {
	a, ok := m.actors[id]
	if !ok {
		return nil, fmt.Errorf("staff: %w", apperr.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) GetByEmail(ctx context.Context, email string) (*Actor, error) {
	for id, a := range m.actors {
		if a.Email == email {
			return m.GetByID(ctx, id)
		}
	}
	return nil, fmt.Errorf("staff: %w", apperr.ErrNotFound)
}

func (m *mockRepo) Update(_ context.Context, a *Actor) error {
	existing, ok := m.actors[a.ID]
	if !ok {
		return fmt.Errorf("staff: %w", apperr.ErrNotFound)
	}
	cp := *a
	cp.PasswordHash = existing.PasswordHash
	m.actors[a.ID] = &cp
	return nil
}

func (m *mockRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	a, ok := m.actors[id]
	if !ok {
		return fmt.Errorf("staff: %w", apperr.ErrNotFound)
	}
	a.PasswordHash = hash
	now := time.Now()
	a.PasswordChangedAt = &now
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int, activeOnly bool) ([]*Actor, int, error) {
	var out []*Actor
	for _, a := range m.actors {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

type mockRoles map[uuid.UUID]bool

func (m mockRoles) RoleExists(_ context.Context, id uuid.UUID) (bool, error) {
	return m[id], nil
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

var (
	admin       = uuid.New()
	cashierID   = uuid.New()
	physicianID = uuid.New()
)

func (a *recordingAuditor) actions() []string {
	out := make([]string, len(a.events))
	for i, ev := range a.events {
		out[i] = ev.Action
	}
	return out
}

func newTestService() (*Service, *mockRepo, *recordingAuditor) {
	repo := newMockRepo()
	aud := &recordingAuditor{}
	return NewService(repo, mockRoles{cashierID: true, physicianID: true}, aud), repo, aud
}

func enroll(t *testing.T, svc *Service, email string) *Actor {
	t.Helper()
	a, err := svc.Enroll(context.Background(), admin, EnrollInput{
		Name: "Kofi Boateng", Email: email, Password: "s3cret-pass", RoleID: cashierID,
	})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return a
}

func TestEnroll(t *testing.T) {
	svc, repo, aud := newTestService()

	a := enroll(t, svc, " Kofi@PHC.example ")
	if a.Email != "kofi@phc.example" {
		t.Errorf("expected normalized email, got %s", a.Email)
	}
	if !a.Active {
		t.Error("expected new actor to be active")
	}
	if repo.actors[a.ID].PasswordHash == "s3cret-pass" {
		t.Error("password stored in plaintext")
	}
	if len(aud.events) != 1 || aud.events[0].Action != "staff_create" {
		t.Fatalf("expected staff_create audit, got %+v", aud.events)
	}
	snap := fmt.Sprint(aud.events[0].After)
	if strings.Contains(snap, "$2a$") || strings.Contains(snap, "s3cret") {
		t.Error("audit snapshot must not include credentials")
	}
}

func TestEnroll_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	tests := []struct {
		name string
		in   EnrollInput
		want error
	}{
		{"missing name", EnrollInput{Email: "a@b.c", Password: "longenough", RoleID: cashierID}, apperr.ErrInvalid},
		{"bad email", EnrollInput{Name: "A", Email: "nope", Password: "longenough", RoleID: cashierID}, apperr.ErrInvalid},
		{"short password", EnrollInput{Name: "A", Email: "a@b.c", Password: "short", RoleID: cashierID}, apperr.ErrInvalid},
		{"no role", EnrollInput{Name: "A", Email: "a@b.c", Password: "longenough"}, apperr.ErrInvalid},
		{"unknown role", EnrollInput{Name: "A", Email: "a@b.c", Password: "longenough", RoleID: uuid.New()}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Enroll(context.Background(), admin, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEnroll_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	enroll(t, svc, "ama@phc.example")

	_, err := svc.Enroll(context.Background(), admin, EnrollInput{
		Name: "Other", Email: "AMA@phc.example", Password: "longenough", RoleID: cashierID,
	})
	if !errors.Is(err, apperr.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestDeactivateReactivate(t *testing.T) {
	svc, _, aud := newTestService()
	ctx := context.Background()
	a := enroll(t, svc, "yaw@phc.example")

	got, err := svc.Deactivate(ctx, admin, a.ID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if got.Active {
		t.Error("expected inactive")
	}
	if _, err := svc.Deactivate(ctx, admin, a.ID); err != nil {
		t.Fatalf("second deactivate: %v", err)
	}
	if _, err := svc.Reactivate(ctx, admin, a.ID); err != nil {
		t.Fatalf("reactivate: %v", err)
	}

	var actions []string
	for _, ev := range aud.events {
		actions = append(actions, ev.Action)
	}
	want := "[staff_create staff_deactivate staff_reactivate]"
	if fmt.Sprint(actions) != want {
		t.Errorf("audited %v, want %s", actions, want)
	}
}

func TestDeactivate_Self(t *testing.T) {
	svc, _, _ := newTestService()
	a := enroll(t, svc, "self@phc.example")

	if _, err := svc.Deactivate(context.Background(), a.ID, a.ID); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestChangeRole(t *testing.T) {
	svc, _, aud := newTestService()
	a := enroll(t, svc, "efua@phc.example")

	got, err := svc.ChangeRole(context.Background(), admin, a.ID, physicianID)
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if got.RoleID != physicianID {
		t.Error("expected role to change")
	}
	last := aud.events[len(aud.events)-1]
	if changed := audit.ChangeSummary(last.Before, last.After); fmt.Sprint(changed) != "[role_id]" {
		t.Errorf("expected role_id change, got %v", changed)
	}

	if _, err := svc.ChangeRole(context.Background(), admin, a.ID, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown role, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	a := enroll(t, svc, "kwame@phc.example")

	got, err := svc.Authenticate(ctx, "KWAME@phc.example", "s3cret-pass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != a.ID {
		t.Error("wrong actor returned")
	}

	for _, tc := range []struct{ email, password string }{
		{"kwame@phc.example", "wrong-pass"},
		{"nobody@phc.example", "s3cret-pass"},
	} {
		if _, err := svc.Authenticate(ctx, tc.email, tc.password); !errors.Is(err, apperr.ErrUnauthenticated) {
			t.Errorf("%s: expected ErrUnauthenticated, got %v", tc.email, err)
		}
	}

	svc.Deactivate(ctx, admin, a.ID)
	if _, err := svc.Authenticate(ctx, "kwame@phc.example", "s3cret-pass"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("inactive actor: expected ErrUnauthenticated, got %v", err)
	}
}

func TestRotateCredential(t *testing.T) {
	svc, repo, aud := newTestService()
	ctx := context.Background()
	a := enroll(t, svc, "abena@phc.example")

	enrolled := len(aud.events)

	if err := svc.RotateCredential(ctx, a.ID, "wrong-current", "n3w-password"); !errors.Is(err, apperr.ErrDenied) {
		t.Fatalf("expected ErrDenied, got %v", err)
	}
	if len(aud.events) != enrolled {
		t.Fatalf("a denied rotation must not be audited, got %v", aud.actions())
	}
	if err := svc.RotateCredential(ctx, a.ID, "s3cret-pass", "s3cret-pass"); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for reuse, got %v", err)
	}
	if err := svc.RotateCredential(ctx, a.ID, "s3cret-pass", "short"); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for weak password, got %v", err)
	}
	if len(aud.events) != enrolled {
		t.Fatalf("rejected rotations must not be audited, got %v", aud.actions())
	}
	if err := svc.RotateCredential(ctx, a.ID, "s3cret-pass", "n3w-password"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := auth.VerifyPassword(repo.actors[a.ID].PasswordHash, "n3w-password"); err != nil {
		t.Error("expected new password to verify")
	}

	last := aud.events[len(aud.events)-1]
	if last.Action != "password_change" || last.Before != nil || last.After != nil {
		t.Errorf("unexpected password_change event: %+v", last)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _, aud := newTestService()
	ctx := context.Background()
	a := enroll(t, svc, "esi@phc.example")
	dept := uuid.New()

	in := ProfileInput{Name: "Esi Owusu", EmployeeNo: "E-17", DepartmentID: &dept}
	updated, err := svc.UpdateProfile(ctx, admin, a.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Esi Owusu" || updated.DepartmentID == nil || *updated.DepartmentID != dept {
		t.Errorf("unexpected actor %+v", updated)
	}
	last := aud.events[len(aud.events)-1]
	changed := audit.ChangeSummary(last.Before, last.After)
	if last.Action != "staff_update" || fmt.Sprint(changed) != "[department_id employee_no name]" {
		t.Errorf("unexpected event %s with changes %v", last.Action, changed)
	}

	// Same values again, with a distinct but equal department pointer.
	same := dept
	count := len(aud.events)
	if _, err := svc.UpdateProfile(ctx, admin, a.ID, ProfileInput{Name: " Esi Owusu ", EmployeeNo: "E-17", DepartmentID: &same}); err != nil {
		t.Fatalf("repeat update: %v", err)
	}
	if len(aud.events) != count {
		t.Errorf("an unchanged profile must not be audited, got %v", aud.actions())
	}

	if _, err := svc.UpdateProfile(ctx, admin, a.ID, ProfileInput{Name: "  "}); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for blank name, got %v", err)
	}
}
