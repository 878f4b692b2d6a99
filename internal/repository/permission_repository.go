package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PermissionRepository resolves role permission sets.
type PermissionRepository interface {
	GetPermissionsByRole(ctx context.Context, roleID uuid.UUID) ([]string, error)
}

type permissionRepository struct {
	pool *pgxpool.Pool
}

// NewPermissionRepository returns a Postgres-backed implementation.
func NewPermissionRepository(pool *pgxpool.Pool) PermissionRepository {
	return &permissionRepository{pool: pool}
}

func (r *permissionRepository) GetPermissionsByRole(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	const query = `
        SELECT p.name FROM permissions AS p
        JOIN role_permissions AS rp ON rp.permission_id = p.id
        WHERE rp.role_id = $1`

	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		permissions = append(permissions, name)
	}
	return permissions, rows.Err()
}
