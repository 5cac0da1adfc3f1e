package grant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AminoVic23/PHC-4/internal/domain/facility"
	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/db"
)

const activePairConstraint = "facility_grants_active_pair_key"

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const grantCols = `g.id, g.actor_id, g.facility_id, g.can_access, g.can_manage_staff, g.can_manage_facility,
	g.can_view_reports, g.can_export_data, g.active, g.assigned_at, g.assigned_by, g.notes, g.revoked_at, g.revoked_by`

func (r *repoPG) Create(ctx context.Context, g *FacilityGrant) error {
	g.ID = uuid.New()
	g.AssignedAt = time.Now().UTC()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO facility_grants (id, actor_id, facility_id, can_access, can_manage_staff, can_manage_facility,
			can_view_reports, can_export_data, active, assigned_at, assigned_by, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		g.ID, g.ActorID, g.FacilityID, g.CanAccess, g.CanManageStaff, g.CanManageFacility,
		g.CanViewReports, g.CanExportData, g.Active, g.AssignedAt, g.AssignedBy, nullString(g.Notes))
	return r.writeErr("insert facility grant", err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*FacilityGrant, error) {
	g, err := scanGrant(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+grantCols+` FROM facility_grants g WHERE g.id = $1`, id))
	if err != nil {
		return nil, db.Classify(fmt.Errorf("get facility grant: %w", err))
	}
	return g, nil
}

func (r *repoPG) Update(ctx context.Context, g *FacilityGrant) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE facility_grants SET can_access = $2, can_manage_staff = $3, can_manage_facility = $4,
			can_view_reports = $5, can_export_data = $6, active = $7, notes = $8, revoked_at = $9, revoked_by = $10
		WHERE id = $1`,
		g.ID, g.CanAccess, g.CanManageStaff, g.CanManageFacility, g.CanViewReports, g.CanExportData,
		g.Active, nullString(g.Notes), g.RevokedAt, g.RevokedBy)
	if err := r.writeErr("update facility grant", err); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("facility grant %s: %w", g.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, activePairConstraint) {
		return fmt.Errorf("%s: %w", op, apperr.ErrDuplicatePair)
	}
	return db.Classify(fmt.Errorf("%s: %w", op, err))
}

func (r *repoPG) ActiveGrant(ctx context.Context, actorID, facilityID uuid.UUID) (*FacilityGrant, error) {
	g, err := scanGrant(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+grantCols+`
		FROM facility_grants g
		JOIN facilities f ON f.id = g.facility_id
		WHERE g.actor_id = $1 AND g.facility_id = $2 AND g.active AND f.active`, actorID, facilityID))
	if err != nil {
		return nil, db.Classify(fmt.Errorf("get active grant: %w", err))
	}
	return g, nil
}

func (r *repoPG) AccessibleFacilities(ctx context.Context, actorID uuid.UUID) ([]*facility.Facility, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT f.id, f.code, f.name, f.type, COALESCE(f.address, ''), COALESCE(f.phone, ''), f.active,
			f.created_at, f.updated_at
		FROM facilities f
		JOIN facility_grants g ON g.facility_id = f.id
		WHERE g.actor_id = $1 AND g.active AND g.can_access AND f.active
		ORDER BY f.name, f.code`, actorID)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list accessible facilities: %w", err))
	}
	defer rows.Close()

	items := []*facility.Facility{}
	for rows.Next() {
		var f facility.Facility
		if err := rows.Scan(&f.ID, &f.Code, &f.Name, &f.Type, &f.Address, &f.Phone, &f.Active,
			&f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &f)
	}
	return items, db.Classify(rows.Err())
}

func (r *repoPG) ListForActor(ctx context.Context, actorID uuid.UUID, includeInactive bool) ([]*FacilityGrant, error) {
	query := `SELECT ` + grantCols + ` FROM facility_grants g WHERE g.actor_id = $1`
	if !includeInactive {
		query += ` AND g.active`
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query+` ORDER BY g.assigned_at DESC`, actorID)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list grants for actor: %w", err))
	}
	defer rows.Close()

	var items []*FacilityGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, g)
	}
	return items, db.Classify(rows.Err())
}

func (r *repoPG) ListForFacility(ctx context.Context, facilityID uuid.UUID, includeInactive bool) ([]*Assignment, error) {
	query := `SELECT ` + grantCols + `, s.name, s.email, s.active
		FROM facility_grants g JOIN staff s ON s.id = g.actor_id
		WHERE g.facility_id = $1`
	if !includeInactive {
		query += ` AND g.active`
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query+` ORDER BY s.name`, facilityID)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list grants for facility: %w", err))
	}
	defer rows.Close()

	var items []*Assignment
	for rows.Next() {
		var a Assignment
		var notes *string
		g := &a.FacilityGrant
		if err := rows.Scan(&g.ID, &g.ActorID, &g.FacilityID, &g.CanAccess, &g.CanManageStaff, &g.CanManageFacility,
			&g.CanViewReports, &g.CanExportData, &g.Active, &g.AssignedAt, &g.AssignedBy, &notes, &g.RevokedAt, &g.RevokedBy,
			&a.ActorName, &a.ActorEmail, &a.ActorActive); err != nil {
			return nil, err
		}
		if notes != nil {
			g.Notes = *notes
		}
		items = append(items, &a)
	}
	return items, db.Classify(rows.Err())
}

func scanGrant(row pgx.Row) (*FacilityGrant, error) {
	var g FacilityGrant
	var notes *string
	if err := row.Scan(&g.ID, &g.ActorID, &g.FacilityID, &g.CanAccess, &g.CanManageStaff, &g.CanManageFacility,
		&g.CanViewReports, &g.CanExportData, &g.Active, &g.AssignedAt, &g.AssignedBy, &notes, &g.RevokedAt, &g.RevokedBy); err != nil {
		return nil, err
	}
	if notes != nil {
		g.Notes = *notes
	}
	return &g, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
