package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/db"
	"github.com/AminoVic23/PHC-4/internal/platform/ids"
	"github.com/AminoVic23/PHC-4/internal/platform/middleware"
	"github.com/AminoVic23/PHC-4/internal/platform/telemetry"
)

// Auditor runs a mutation and its audit append as one unit of work.
type Auditor interface {
	Within(ctx context.Context, actorID uuid.UUID, fn func(ctx context.Context) (Event, error)) (*Entry, error)
}

type Recorder struct {
	repo    Repository
	tx      db.Transactor
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

func NewRecorder(repo Repository, tx db.Transactor, logger zerolog.Logger, metrics *telemetry.Metrics) *Recorder {
	return &Recorder{
		repo:    repo,
		tx:      tx,
		logger:  logger.With().Str("component", "audit").Logger(),
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record appends one entry for ev, attributed to actorID. Client address,
// user agent, session id and request id come from the request metadata on
// ctx. The entry joins the transaction on ctx when there is one.
func (r *Recorder) Record(ctx context.Context, actorID uuid.UUID, ev Event) (*Entry, error) {
	if actorID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	if ev.Action == "" || ev.EntityType == "" {
		return nil, apperr.Invalid("audit action and entity type are required")
	}

	before, err := snapshot(ev.Before)
	if err != nil {
		return nil, fmt.Errorf("encode before snapshot: %w", err)
	}
	after, err := snapshot(ev.After)
	if err != nil {
		return nil, fmt.Errorf("encode after snapshot: %w", err)
	}

	ts := r.now()
	meta := middleware.RequestMetaFromContext(ctx)
	e := &Entry{
		ID:         ids.NewAt(ts),
		ActorID:    actorID,
		Action:     ev.Action,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Before:     before,
		After:      after,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		SessionID:  meta.SessionID,
		RequestID:  meta.RequestID,
		Note:       ev.Note,
		Timestamp:  ts,
	}
	if before != nil && after != nil {
		e.ChangedKeys = changedKeys(before, after)
	}

	if err := r.repo.Append(ctx, e); err != nil {
		r.metrics.AuditWrite(err)
		r.logger.Error().Err(err).
			Str("action", e.Action).
			Str("entity_type", e.EntityType).
			Str("entity_id", e.EntityID).
			Msg("audit write failed")
		return nil, fmt.Errorf("%w: %v", apperr.ErrAuditWriteFailed, err)
	}
	r.metrics.AuditWrite(nil)
	return e, nil
}

// Within runs fn and records the event it returns inside one transaction. If
// fn fails, or the audit append fails, the transaction rolls back so neither
// the mutation nor the entry persists. A zero event commits fn's work without
// an entry, which is how idempotent no-ops are expressed.
func (r *Recorder) Within(ctx context.Context, actorID uuid.UUID, fn func(ctx context.Context) (Event, error)) (*Entry, error) {
	if actorID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}

	var entry *Entry
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		ev, err := fn(ctx)
		if err != nil {
			return err
		}
		if ev.IsZero() {
			return nil
		}
		entry, err = r.Record(ctx, actorID, ev)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ChangeSummary returns the sorted top-level keys present in both snapshots
// whose values differ. Keys found on one side only are not compared.
// Snapshots that do not encode to JSON objects yield nil.
func ChangeSummary(before, after any) []string {
	b, err := snapshot(before)
	if err != nil || b == nil {
		return nil
	}
	a, err := snapshot(after)
	if err != nil || a == nil {
		return nil
	}
	return changedKeys(b, a)
}

func changedKeys(before, after json.RawMessage) []string {
	var bm, am map[string]any
	if json.Unmarshal(before, &bm) != nil || json.Unmarshal(after, &am) != nil {
		return nil
	}

	var keys []string
	for k, bv := range bm {
		if av, ok := am[k]; ok && !reflect.DeepEqual(bv, av) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func snapshot(v any) (json.RawMessage, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(s) == 0 {
			return nil, nil
		}
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}
