package audit

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBuildWhere(t *testing.T) {
	actor := uuid.New()
	until := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	where, args := buildWhere(Filter{ActorID: &actor, Action: "login", Until: &until})
	want := " WHERE actor_id = $1 AND action = $2 AND recorded_at < $3"
	if where != want {
		t.Errorf("got %q, want %q", where, want)
	}
	if len(args) != 3 || args[0] != actor || args[1] != "login" || args[2] != until {
		t.Errorf("unexpected args %v", args)
	}

	if where, args := buildWhere(Filter{}); where != "" || args != nil {
		t.Errorf("empty filter should not constrain, got %q %v", where, args)
	}
}

// Creates and deletes carry a single snapshot and count as data changes.
func TestBuildWhere_WithChangesOnlyMatchesEitherSnapshot(t *testing.T) {
	where, args := buildWhere(Filter{WithChangesOnly: true})
	if !strings.Contains(where, "before_json IS NOT NULL OR after_json IS NOT NULL") {
		t.Errorf("unexpected condition %q", where)
	}
	if strings.Contains(where, "changed_keys") {
		t.Errorf("filter must not depend on the change summary: %q", where)
	}
	if len(args) != 0 {
		t.Errorf("expected no args, got %v", args)
	}
}
