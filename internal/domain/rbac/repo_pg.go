package rbac

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

const roleCols = `id, name, description, universal, read_oversight, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, role *Role) error {
	role.ID = uuid.New()
	now := time.Now().UTC()
	role.CreatedAt, role.UpdatedAt = now, now
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO roles (`+roleCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		role.ID, role.Name, role.Description, role.Universal, role.ReadOversight, role.CreatedAt, role.UpdatedAt)
	if db.IsUniqueViolation(err, "roles_name_key") {
		return fmt.Errorf("role %q: %w", role.Name, apperr.ErrDuplicateName)
	}
	if err != nil {
		return db.Classify(fmt.Errorf("insert role: %w", err))
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	return r.get(ctx, `SELECT `+roleCols+` FROM roles WHERE id = $1`, id)
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.get(ctx, `SELECT `+roleCols+` FROM roles WHERE name = $1`, name)
}

func (r *repoPG) get(ctx context.Context, query string, arg any) (*Role, error) {
	role, err := scanRole(db.Conn(ctx, r.pool).QueryRow(ctx, query, arg))
	if err != nil {
		return nil, db.Classify(fmt.Errorf("get role: %w", err))
	}
	if role.Permissions, err = r.permissions(ctx, role.ID); err != nil {
		return nil, err
	}
	return role, nil
}

func (r *repoPG) List(ctx context.Context) ([]*Role, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+roleCols+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list roles: %w", err))
	}
	var roles []*Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		roles = append(roles, role)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}

	for _, role := range roles {
		if role.Permissions, err = r.permissions(ctx, role.ID); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

func (r *repoPG) UpdateFlags(ctx context.Context, id uuid.UUID, universal, readOversight bool) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE roles SET universal = $2, read_oversight = $3, updated_at = NOW() WHERE id = $1`,
		id, universal, readOversight)
	if err != nil {
		return db.Classify(fmt.Errorf("update role flags: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("role %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *repoPG) AddPermission(ctx context.Context, roleID uuid.UUID, code PermissionCode) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_code) VALUES ($1, $2)
		ON CONFLICT (role_id, permission_code) DO NOTHING`, roleID, string(code))
	if err != nil {
		return false, db.Classify(fmt.Errorf("grant permission: %w", err))
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) RemovePermission(ctx context.Context, roleID uuid.UUID, code PermissionCode) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1 AND permission_code = $2`, roleID, string(code))
	if err != nil {
		return false, db.Classify(fmt.Errorf("revoke permission: %w", err))
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) HasPermission(ctx context.Context, roleID uuid.UUID, code PermissionCode) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM role_permissions WHERE role_id = $1 AND permission_code = $2)`,
		roleID, string(code)).Scan(&ok)
	if err != nil {
		return false, db.Classify(fmt.Errorf("check permission: %w", err))
	}
	return ok, nil
}

func (r *repoPG) permissions(ctx context.Context, roleID uuid.UUID) ([]PermissionCode, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT permission_code FROM role_permissions WHERE role_id = $1 ORDER BY permission_code`, roleID)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list role permissions: %w", err))
	}
	defer rows.Close()

	perms := []PermissionCode{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		perms = append(perms, PermissionCode(code))
	}
	return perms, db.Classify(rows.Err())
}

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Universal, &role.ReadOversight,
		&role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	return &role, nil
}
