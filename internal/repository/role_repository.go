package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// RoleRepository resolves the deployment's static roles.
type RoleRepository interface {
	GetRoleIDByName(ctx context.Context, name domain.RoleType) (uuid.UUID, error)
	GetRoleNameByID(ctx context.Context, roleID uuid.UUID) (domain.RoleType, error)
}

type roleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository returns a Postgres-backed implementation.
func NewRoleRepository(pool *pgxpool.Pool) RoleRepository {
	return &roleRepository{pool: pool}
}

func (r *roleRepository) GetRoleIDByName(ctx context.Context, name domain.RoleType) (uuid.UUID, error) {
	const query = `SELECT id FROM roles WHERE name=$1`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, query, string(name)).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *roleRepository) GetRoleNameByID(ctx context.Context, roleID uuid.UUID) (domain.RoleType, error) {
	const query = `SELECT name FROM roles WHERE id=$1`
	var name string
	if err := r.pool.QueryRow(ctx, query, roleID).Scan(&name); err != nil {
		return "", err
	}
	return domain.RoleType(name), nil
}
