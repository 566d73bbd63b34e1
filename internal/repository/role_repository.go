package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quizsmith/quizsmith-backend/internal/model"
)

var (
	ErrRoleNotFound  = errors.New("role not found")
	ErrRoleNameTaken = errors.New("a role with this name already exists")
	ErrRoleInUse     = errors.New("role is still assigned to authors")
)

// RoleRepository reads and writes roles and their permission grants.
type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// GetPermissionsByRoleID returns the permission codes granted to a
// role. Loaded on every login to stamp the codes into the JWT.
func (r *RoleRepository) GetPermissionsByRoleID(ctx context.Context, roleID int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.code
		 FROM permissions p JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1
		 ORDER BY p.code`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// GetRoleByID returns one role with its permission codes.
func (r *RoleRepository) GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error) {
	role := &model.Role{ID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT name, created_at FROM roles WHERE id = $1`, id,
	).Scan(&role.Name, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	codes, err := r.GetPermissionsByRoleID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.RoleWithPermissions{Role: role, Permissions: codes}, nil
}

// ListRolesWithPermissions returns every role and its permission codes
// in a single round trip, grouping the joined rows in memory.
func (r *RoleRepository) ListRolesWithPermissions(ctx context.Context) ([]model.RoleWithPermissions, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.created_at, p.code
		 FROM roles r
		 LEFT JOIN role_permissions rp ON rp.role_id = r.id
		 LEFT JOIN permissions p ON p.id = rp.permission_id
		 ORDER BY r.id, p.code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.RoleWithPermissions
	index := make(map[int]int)
	for rows.Next() {
		var (
			id        int
			name      string
			createdAt time.Time
			code      *string
		)
		if err := rows.Scan(&id, &name, &createdAt, &code); err != nil {
			return nil, err
		}

		i, seen := index[id]
		if !seen {
			roles = append(roles, model.RoleWithPermissions{
				Role: &model.Role{ID: id, Name: name, CreatedAt: createdAt},
			})
			i = len(roles) - 1
			index[id] = i
		}
		if code != nil {
			roles[i].Permissions = append(roles[i].Permissions, *code)
		}
	}
	return roles, rows.Err()
}

// CreateRole inserts a role and returns its ID.
func (r *RoleRepository) CreateRole(ctx context.Context, name string) (int, error) {
	var id int
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name) VALUES ($1) RETURNING id`, name,
	).Scan(&id)
	if pgErrCode(err) == "23505" {
		return 0, ErrRoleNameTaken
	}
	return id, err
}

// UpdateRole renames a role.
func (r *RoleRepository) UpdateRole(ctx context.Context, id int, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE roles SET name = $1 WHERE id = $2`, name, id)
	if pgErrCode(err) == "23505" {
		return ErrRoleNameTaken
	}
	if err == nil && tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return err
}

// DeleteRole removes a role. The FK from authors maps to ErrRoleInUse,
// so a role cannot vanish under the accounts that hold it.
func (r *RoleRepository) DeleteRole(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if pgErrCode(err) == "23503" {
		return ErrRoleInUse
	}
	return err
}

// DeleteAllPermissionsFromRole clears a role's grants before a replace.
func (r *RoleRepository) DeleteAllPermissionsFromRole(ctx context.Context, roleID int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID)
	return err
}

// AssignPermissionsToRole grants a set of permission codes to a role.
// Codes missing from the catalog are skipped, not errors; a stale
// client sending a removed code must not block the rest.
func (r *RoleRepository) AssignPermissionsToRole(ctx context.Context, roleID int, codes []string) error {
	if len(codes) == 0 {
		return nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id FROM permissions WHERE code = ANY($1)`, codes)
	if err != nil {
		return err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	_, err = r.pool.CopyFrom(ctx,
		pgx.Identifier{"role_permissions"},
		[]string{"role_id", "permission_id"},
		pgx.CopyFromSlice(len(ids), func(i int) ([]interface{}, error) {
			return []interface{}{roleID, ids[i]}, nil
		}),
	)
	return err
}

// pgErrCode extracts the SQLSTATE from a pgx error, or "" for nil and
// non-Postgres errors.
func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
