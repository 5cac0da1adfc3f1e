package staff

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const actorCols = `id, employee_no, name, email, password_hash, role_id, department_id, active,
	password_changed_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Actor) error {
	a.ID = uuid.New()
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO staff (`+actorCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, nullString(a.EmployeeNo), a.Name, a.Email, a.PasswordHash, a.RoleID, a.DepartmentID, a.Active,
		a.PasswordChangedAt, a.CreatedAt, a.UpdatedAt)
	if db.IsUniqueViolation(err, "staff_email_key") {
		return fmt.Errorf("staff email: %w", apperr.ErrDuplicateName)
	}
	if err != nil {
		return db.Classify(fmt.Errorf("insert staff: %w", err))
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Actor, error) {
	a, err := scanActor(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+actorCols+` FROM staff WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(fmt.Errorf("get staff: %w", err))
	}
	return a, nil
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Actor, error) {
	a, err := scanActor(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+actorCols+` FROM staff WHERE email = $1`, email))
	if err != nil {
		return nil, db.Classify(fmt.Errorf("get staff by email: %w", err))
	}
	return a, nil
}

func (r *repoPG) Update(ctx context.Context, a *Actor) error {
	a.UpdatedAt = time.Now().UTC()
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE staff SET employee_no = $2, name = $3, role_id = $4, department_id = $5, active = $6, updated_at = $7
		WHERE id = $1`,
		a.ID, nullString(a.EmployeeNo), a.Name, a.RoleID, a.DepartmentID, a.Active, a.UpdatedAt)
	if err != nil {
		return db.Classify(fmt.Errorf("update staff: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("staff %s: %w", a.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE staff SET password_hash = $2, password_changed_at = NOW(), updated_at = NOW() WHERE id = $1`,
		id, hash)
	if err != nil {
		return db.Classify(fmt.Errorf("update staff password: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("staff %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int, activeOnly bool) ([]*Actor, int, error) {
	where := ""
	if activeOnly {
		where = " WHERE active"
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM staff`+where).Scan(&total); err != nil {
		return nil, 0, db.Classify(fmt.Errorf("count staff: %w", err))
	}

	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+actorCols+` FROM staff`+where+` ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, db.Classify(fmt.Errorf("list staff: %w", err))
	}
	defer rows.Close()

	var items []*Actor
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, db.Classify(rows.Err())
}

func scanActor(row pgx.Row) (*Actor, error) {
	var a Actor
	var employeeNo *string
	if err := row.Scan(&a.ID, &employeeNo, &a.Name, &a.Email, &a.PasswordHash, &a.RoleID, &a.DepartmentID,
		&a.Active, &a.PasswordChangedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if employeeNo != nil {
		a.EmployeeNo = *employeeNo
	}
	return &a, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
