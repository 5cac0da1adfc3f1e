package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SystemActor attributes mutations made by the CLI, such as seeding roles,
// where no human actor is signed in.
var SystemActor = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Event describes one mutation to record. Before and After are snapshots of
// the entity and are JSON encoded as given. A zero Event records nothing.
type Event struct {
	Action     string
	EntityType string
	EntityID   string
	Before     any
	After      any
	Note       string
}

// IsZero reports whether the event carries no action.
func (e Event) IsZero() bool {
	return e.Action == ""
}

// Entry is an appended audit log row.
type Entry struct {
	ID          string          `json:"id"`
	ActorID     uuid.UUID       `json:"actor_id"`
	Action      string          `json:"action"`
	EntityType  string          `json:"entity_type"`
	EntityID    string          `json:"entity_id,omitempty"`
	Before      json.RawMessage `json:"before,omitempty"`
	After       json.RawMessage `json:"after,omitempty"`
	ChangedKeys []string        `json:"changed_keys,omitempty"`
	IP          string          `json:"ip,omitempty"`
	UserAgent   string          `json:"user_agent,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
	Note        string          `json:"note,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Filter narrows an audit query. Zero fields do not filter.
type Filter struct {
	ActorID         *uuid.UUID
	EntityType      string
	EntityID        string
	Action          string
	Since           *time.Time
	Until           *time.Time
	// WithChangesOnly keeps entries that carry a before or after snapshot.
	WithChangesOnly bool
	Limit           int
	Offset          int
}

// Normalize clamps paging to the allowed window.
func (f *Filter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

type Stats struct {
	Since    time.Time     `json:"since"`
	Total    int           `json:"total"`
	ByAction []ActionCount `json:"by_action"`
}
