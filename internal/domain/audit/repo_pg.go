package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AminoVic23/PHC-4/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const entryCols = `id, actor_id, action, entity_type, entity_id, before_json, after_json,
	changed_keys, ip, user_agent, session_id, request_id, note, recorded_at`

func (r *repoPG) Append(ctx context.Context, e *Entry) error {
	changed := e.ChangedKeys
	if changed == nil {
		changed = []string{}
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO audit_log (`+entryCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		e.ID, e.ActorID, e.Action, e.EntityType, e.EntityID, nullJSON(e.Before), nullJSON(e.After),
		changed, e.IP, e.UserAgent, e.SessionID, e.RequestID, e.Note, e.Timestamp)
	if err != nil {
		return db.Classify(fmt.Errorf("append audit entry: %w", err))
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+entryCols+` FROM audit_log WHERE id = $1`, id)
	e, err := scanEntry(row)
	if err != nil {
		return nil, db.Classify(err)
	}
	return e, nil
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Entry, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Classify(fmt.Errorf("count audit entries: %w", err))
	}

	args = append(args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s FROM audit_log%s ORDER BY recorded_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		entryCols, where, len(args)-1, len(args))
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Classify(fmt.Errorf("list audit entries: %w", err))
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, db.Classify(err)
		}
		items = append(items, e)
	}
	return items, total, db.Classify(rows.Err())
}

func (r *repoPG) CountByAction(ctx context.Context, since time.Time) ([]ActionCount, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT action, COUNT(*) FROM audit_log
		WHERE recorded_at >= $1
		GROUP BY action ORDER BY COUNT(*) DESC, action`, since)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("count audit actions: %w", err))
	}
	defer rows.Close()

	var out []ActionCount
	for rows.Next() {
		var ac ActionCount
		if err := rows.Scan(&ac.Action, &ac.Count); err != nil {
			return nil, err
		}
		out = append(out, ac)
	}
	return out, db.Classify(rows.Err())
}

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ActorID != nil {
		add("actor_id = $%d", *f.ActorID)
	}
	if f.EntityType != "" {
		add("entity_type = $%d", f.EntityType)
	}
	if f.EntityID != "" {
		add("entity_id = $%d", f.EntityID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.Since != nil {
		add("recorded_at >= $%d", *f.Since)
	}
	if f.Until != nil {
		add("recorded_at < $%d", *f.Until)
	}
	if f.WithChangesOnly {
		conds = append(conds, "(before_json IS NOT NULL OR after_json IS NOT NULL)")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var before, after []byte
	err := row.Scan(&e.ID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID, &before, &after,
		&e.ChangedKeys, &e.IP, &e.UserAgent, &e.SessionID, &e.RequestID, &e.Note, &e.Timestamp)
	if err != nil {
		return nil, err
	}
	e.Before = before
	e.After = after
	return &e, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
