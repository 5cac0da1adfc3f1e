package facility

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

const facilityCols = `id, code, name, type, address, phone, active, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, f *Facility) error {
	f.ID = uuid.New()
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO facilities (`+facilityCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		f.ID, f.Code, f.Name, f.Type, nullString(f.Address), nullString(f.Phone), f.Active, f.CreatedAt, f.UpdatedAt)
	if db.IsUniqueViolation(err, "facilities_code_key") {
		return fmt.Errorf("facility code %q: %w", f.Code, apperr.ErrDuplicateName)
	}
	if err != nil {
		return db.Classify(fmt.Errorf("insert facility: %w", err))
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Facility, error) {
	f, err := scanFacility(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+facilityCols+` FROM facilities WHERE id = $1`, id))
	if err != nil {
		return nil, db.Classify(fmt.Errorf("get facility: %w", err))
	}
	return f, nil
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Facility, error) {
	f, err := scanFacility(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+facilityCols+` FROM facilities WHERE code = $1`, code))
	if err != nil {
		return nil, db.Classify(fmt.Errorf("get facility by code: %w", err))
	}
	return f, nil
}

func (r *repoPG) Update(ctx context.Context, f *Facility) error {
	f.UpdatedAt = time.Now().UTC()
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE facilities SET name = $2, type = $3, address = $4, phone = $5, active = $6, updated_at = $7
		WHERE id = $1`,
		f.ID, f.Name, f.Type, nullString(f.Address), nullString(f.Phone), f.Active, f.UpdatedAt)
	if err != nil {
		return db.Classify(fmt.Errorf("update facility: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("facility %s: %w", f.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, includeInactive bool) ([]*Facility, error) {
	query := `SELECT ` + facilityCols + ` FROM facilities`
	if !includeInactive {
		query += ` WHERE active`
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query+` ORDER BY name, code`)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list facilities: %w", err))
	}
	defer rows.Close()

	var items []*Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, db.Classify(rows.Err())
}

const departmentCols = `id, facility_id, name, type, active, created_at`

func (r *repoPG) CreateDepartment(ctx context.Context, d *Department) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now().UTC()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO departments (`+departmentCols+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		d.ID, d.FacilityID, d.Name, d.Type, d.Active, d.CreatedAt)
	if db.IsUniqueViolation(err, "departments_facility_name_key") {
		return fmt.Errorf("department %q: %w", d.Name, apperr.ErrDuplicateName)
	}
	if err != nil {
		return db.Classify(fmt.Errorf("insert department: %w", err))
	}
	return nil
}

func (r *repoPG) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	var d Department
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+departmentCols+` FROM departments WHERE id = $1`, id).
		Scan(&d.ID, &d.FacilityID, &d.Name, &d.Type, &d.Active, &d.CreatedAt)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("get department: %w", err))
	}
	return &d, nil
}

func (r *repoPG) SetDepartmentActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE departments SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return db.Classify(fmt.Errorf("update department: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("department %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) ListDepartments(ctx context.Context, facilityID uuid.UUID) ([]*Department, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+departmentCols+` FROM departments WHERE facility_id = $1 ORDER BY name`, facilityID)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list departments: %w", err))
	}
	defer rows.Close()

	var items []*Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.FacilityID, &d.Name, &d.Type, &d.Active, &d.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, db.Classify(rows.Err())
}

func scanFacility(row pgx.Row) (*Facility, error) {
	var f Facility
	var address, phone *string
	if err := row.Scan(&f.ID, &f.Code, &f.Name, &f.Type, &address, &phone, &f.Active, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if address != nil {
		f.Address = *address
	}
	if phone != nil {
		f.Phone = *phone
	}
	return &f, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
